package protocol

import (
	"strconv"

	"pgasync/buffer"
	"pgasync/codes"
	"pgasync/pgerr"
	"pgasync/wiremsg"

	"github.com/lib/pq/oid"
)

// DecodeAuth parses an AuthenticationXxx message body.
func DecodeAuth(r *buffer.Reader) (Auth, error) {
	typ, err := r.GetUint32()
	if err != nil {
		return Auth{}, err
	}

	auth := Auth{Type: wiremsg.AuthType(typ)}
	if auth.Type == wiremsg.AuthMD5Password {
		salt, err := r.GetBytes(4)
		if err != nil {
			return Auth{}, err
		}
		copy(auth.Salt[:], salt)
	}

	return auth, nil
}

// DecodeParameterStatus parses a ParameterStatus message body.
func DecodeParameterStatus(r *buffer.Reader) (ParameterStatus, error) {
	name, err := r.GetString()
	if err != nil {
		return ParameterStatus{}, err
	}

	value, err := r.GetString()
	if err != nil {
		return ParameterStatus{}, err
	}

	return ParameterStatus{Name: name, Value: value}, nil
}

// DecodeBackendKeyData parses a BackendKeyData message body.
func DecodeBackendKeyData(r *buffer.Reader) (BackendKeyData, error) {
	pid, err := r.GetInt32()
	if err != nil {
		return BackendKeyData{}, err
	}

	secret, err := r.GetInt32()
	if err != nil {
		return BackendKeyData{}, err
	}

	return BackendKeyData{ProcessID: pid, SecretKey: secret}, nil
}

// DecodeReadyForQuery parses a ReadyForQuery message body.
func DecodeReadyForQuery(r *buffer.Reader) (ReadyForQuery, error) {
	b, err := r.GetBytes(1)
	if err != nil {
		return ReadyForQuery{}, err
	}

	return ReadyForQuery{Status: wiremsg.TransactionStatus(b[0])}, nil
}

// DecodeRowDescription parses a RowDescription message body.
func DecodeRowDescription(r *buffer.Reader) (RowDescription, error) {
	count, err := r.GetInt16()
	if err != nil {
		return RowDescription{}, err
	}

	fields := make([]FieldDescription, 0, count)
	for i := int16(0); i < count; i++ {
		name, err := r.GetString()
		if err != nil {
			return RowDescription{}, err
		}

		tableOID, err := r.GetUint32()
		if err != nil {
			return RowDescription{}, err
		}

		attrNo, err := r.GetInt16()
		if err != nil {
			return RowDescription{}, err
		}

		typeOID, err := r.GetUint32()
		if err != nil {
			return RowDescription{}, err
		}

		typeSize, err := r.GetInt16()
		if err != nil {
			return RowDescription{}, err
		}

		typeModifier, err := r.GetInt32()
		if err != nil {
			return RowDescription{}, err
		}

		format, err := r.GetInt16()
		if err != nil {
			return RowDescription{}, err
		}

		fields = append(fields, FieldDescription{
			Name:         name,
			TableOID:     tableOID,
			ColumnAttrNo: attrNo,
			TypeOID:      oid.Oid(typeOID),
			TypeSize:     typeSize,
			TypeModifier: typeModifier,
			Format:       format,
		})
	}

	return RowDescription{Fields: fields}, nil
}

// DecodeDataRow parses a DataRow message body.
func DecodeDataRow(r *buffer.Reader) (DataRow, error) {
	count, err := r.GetInt16()
	if err != nil {
		return DataRow{}, err
	}

	values := make([][]byte, count)
	for i := int16(0); i < count; i++ {
		length, err := r.GetInt32()
		if err != nil {
			return DataRow{}, err
		}

		value, err := r.GetBytes(int(length))
		if err != nil {
			return DataRow{}, err
		}

		values[i] = value
	}

	return DataRow{Values: values}, nil
}

// DecodeCommandComplete parses a CommandComplete message body.
func DecodeCommandComplete(r *buffer.Reader) (CommandComplete, error) {
	tag, err := r.GetString()
	if err != nil {
		return CommandComplete{}, err
	}

	return CommandComplete{Tag: tag}, nil
}

// DecodeParameterDescription parses a ParameterDescription message body.
func DecodeParameterDescription(r *buffer.Reader) (ParameterDescription, error) {
	count, err := r.GetInt16()
	if err != nil {
		return ParameterDescription{}, err
	}

	oids := make([]oid.Oid, count)
	for i := int16(0); i < count; i++ {
		v, err := r.GetUint32()
		if err != nil {
			return ParameterDescription{}, err
		}
		oids[i] = oid.Oid(v)
	}

	return ParameterDescription{OIDs: oids}, nil
}

// DecodeNotificationResponse parses a NotificationResponse message body.
func DecodeNotificationResponse(r *buffer.Reader) (NotificationResponse, error) {
	pid, err := r.GetInt32()
	if err != nil {
		return NotificationResponse{}, err
	}

	channel, err := r.GetString()
	if err != nil {
		return NotificationResponse{}, err
	}

	payload, err := r.GetString()
	if err != nil {
		return NotificationResponse{}, err
	}

	return NotificationResponse{BackendPID: pid, Channel: channel, Payload: payload}, nil
}

// DecodeErrorFields parses the field stream shared by ErrorResponse and
// NoticeResponse (a sequence of (1-byte field type, C string) pairs
// terminated by a NUL type byte) into a pgerr.DBError.
func DecodeErrorFields(r *buffer.Reader) (pgerr.DBError, error) {
	var result pgerr.DBError
	var hasPosition bool
	var position int64

	for {
		fieldType, err := r.GetBytes(1)
		if err != nil {
			return pgerr.DBError{}, err
		}

		if fieldType[0] == 0 {
			break
		}

		value, err := r.GetString()
		if err != nil {
			return pgerr.DBError{}, err
		}

		switch buffer.ErrFieldType(fieldType[0]) {
		case buffer.ErrFieldSeverity:
			result.Severity = pgerr.Severity(value)
		case buffer.ErrFieldSQLState:
			code := codes.Code(value)
			result.Code = code
			if kind, ok := codes.KindOf(code); ok {
				_ = kind // SQLSTATE symbolic kind is informational only here
			}
		case buffer.ErrFieldMsgPrimary:
			result.Message = value
		case buffer.ErrFieldDetail:
			result.Detail = value
		case buffer.ErrFieldHint:
			result.Hint = value
		case buffer.ErrFieldPosition:
			if n, err := strconv.ParseInt(value, 10, 32); err == nil {
				position = n
				hasPosition = true
			}
		case buffer.ErrFieldConstraintName:
			result.ConstraintName = value
		}
	}

	result.Kind = pgerr.DatabaseError
	result.Position = int32(position)
	result.HasPosition = hasPosition
	if result.Code == "" {
		result.Code = codes.Uncategorized
	}
	if result.Severity == "" {
		result.Severity = pgerr.LevelError
	}

	return result, nil
}
