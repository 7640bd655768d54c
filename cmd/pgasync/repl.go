package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"pgasync"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0EA5E9"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
)

// repl reads ';'-terminated statements from in and runs each one on conn,
// printing results to out until in is exhausted or the connection dies.
type repl struct {
	conn *pgasync.Conn
	in   *bufio.Reader
	out  io.Writer
}

func newREPL(conn *pgasync.Conn, in io.Reader, out io.Writer) *repl {
	return &repl{conn: conn, in: bufio.NewReader(in), out: out}
}

func (r *repl) run(ctx context.Context) error {
	var buf strings.Builder

	fmt.Fprintln(r.out, infoStyle.Render("connected. end a statement with ';' and Enter, or Ctrl-D to quit."))

	for {
		fmt.Fprint(r.out, promptStyle.Render("pgasync> "))

		line, err := r.in.ReadString('\n')
		if line != "" {
			buf.WriteString(line)
		}
		if err != nil {
			break
		}

		if !strings.Contains(buf.String(), ";") {
			continue
		}

		sql := strings.TrimSpace(buf.String())
		buf.Reset()
		if sql == "" {
			continue
		}

		if err := r.runStatement(ctx, sql); err != nil {
			return err
		}
	}

	return nil
}

func (r *repl) runStatement(ctx context.Context, sql string) error {
	resultCh := make(chan error, 1)
	start := time.Now()

	r.conn.Execute(pgasync.NewSimpleQuery(sql,
		func(result *pgasync.Result, complete bool) {
			if result != nil && result.RowCount() > 0 {
				fmt.Fprintln(r.out, renderResult(result))
			}
			if complete {
				fmt.Fprintln(r.out, infoStyle.Render(fmt.Sprintf("(%s)", time.Since(start).Round(time.Millisecond))))
				resultCh <- nil
			}
		},
		func(err error) {
			resultCh <- err
		},
	))

	select {
	case err := <-resultCh:
		if err != nil {
			fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
