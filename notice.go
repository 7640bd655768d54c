package pgasync

import "pgasync/pgerr"

// DBNotice is a non-error NoticeResponse the backend sent (severity
// WARNING, NOTICE, INFO, DEBUG or LOG) — e.g. the "there is already a
// transaction in progress" warning a nested BEGIN produces.
type DBNotice = pgerr.DBError
