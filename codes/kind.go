package codes

// Kind names a SQLSTATE condition using the symbolic name Postgres itself
// documents for it (https://www.postgresql.org/docs/current/errcodes-appendix.html),
// independent of which five-character code carries it on the wire.
type Kind string

const (
	KindConnectionException               Kind = "connection_exception"
	KindConnectionDoesNotExist             Kind = "connection_does_not_exist"
	KindConnectionFailure                  Kind = "connection_failure"
	KindSQLClientUnableToEstablishConn     Kind = "sqlclient_unable_to_establish_sqlconnection"
	KindProtocolViolation                  Kind = "protocol_violation"
	KindInvalidAuthorizationSpecification  Kind = "invalid_authorization_specification"
	KindInvalidPassword                    Kind = "invalid_password"
	KindInvalidCatalogName                 Kind = "invalid_catalog_name"
	KindUndefinedTable                     Kind = "undefined_table"
	KindUndefinedColumn                    Kind = "undefined_column"
	KindUndefinedFunction                  Kind = "undefined_function"
	KindUndefinedPreparedStatement         Kind = "undefined_prepared_statement"
	KindDuplicatePreparedStatement          Kind = "duplicate_prepared_statement"
	KindSyntaxError                         Kind = "syntax_error"
	KindInsufficientPrivilege              Kind = "insufficient_privilege"
	KindNotNullViolation                    Kind = "not_null_violation"
	KindForeignKeyViolation                 Kind = "foreign_key_violation"
	KindUniqueViolation                     Kind = "unique_violation"
	KindCheckViolation                      Kind = "check_violation"
	KindExclusionViolation                  Kind = "exclusion_violation"
	KindStringDataRightTruncation           Kind = "string_data_right_truncation"
	KindNumericValueOutOfRange              Kind = "numeric_value_out_of_range"
	KindDivisionByZero                      Kind = "division_by_zero"
	KindInvalidTextRepresentation           Kind = "invalid_text_representation"
	KindInvalidTransactionState             Kind = "invalid_transaction_state"
	KindInFailedSQLTransaction              Kind = "in_failed_sql_transaction"
	KindActiveSQLTransaction                Kind = "active_sql_transaction"
	KindNoActiveSQLTransaction              Kind = "no_active_sql_transaction"
	KindDeadlockDetected                    Kind = "deadlock_detected"
	KindSerializationFailure                Kind = "serialization_failure"
	KindQueryCanceled                       Kind = "query_canceled"
	KindAdminShutdown                       Kind = "admin_shutdown"
	KindCrashShutdown                       Kind = "crash_shutdown"
	KindCannotConnectNow                    Kind = "cannot_connect_now"
	KindTooManyConnections                  Kind = "too_many_connections"
	KindOutOfMemory                         Kind = "out_of_memory"
	KindDiskFull                            Kind = "disk_full"
	KindConfigurationLimitExceeded          Kind = "configuration_limit_exceeded"
	KindInternalError                       Kind = "internal_error"
	KindDataCorrupted                       Kind = "data_corrupted"
	KindFeatureNotSupported                 Kind = "feature_not_supported"
	KindUncategorized                       Kind = "uncategorized"
)

// KindToCode maps each Kind to its canonical SQLSTATE code. Where Postgres
// has assigned more than one code to the same condition name over time
// (e.g. string_data_right_truncation appears both as the class-01 warning
// "01004" and the class-22 exception "22001"), the canonical entry here is
// the class-22 code: it is the one actually raised by data-exception paths,
// while the class-01 code only ever appears as a NOTICE.
var KindToCode = map[Kind]Code{
	KindConnectionException:              ConnectionException,
	KindConnectionDoesNotExist:            ConnectionDoesNotExist,
	KindConnectionFailure:                 ConnectionFailure,
	KindSQLClientUnableToEstablishConn:    SQLclientUnableToEstablishSQLconnection,
	KindProtocolViolation:                 ProtocolViolation,
	KindInvalidAuthorizationSpecification: InvalidAuthorizationSpecification,
	KindInvalidPassword:                   InvalidPassword,
	KindInvalidCatalogName:                InvalidCatalogName,
	KindUndefinedTable:                    UndefinedTable,
	KindUndefinedColumn:                   UndefinedColumn,
	KindUndefinedFunction:                 UndefinedFunction,
	KindUndefinedPreparedStatement:        UndefinedPreparedStatement,
	KindDuplicatePreparedStatement:        DuplicatePreparedStatement,
	KindSyntaxError:                       Syntax,
	KindInsufficientPrivilege:             InsufficientPrivilege,
	KindNotNullViolation:                  NotNullViolation,
	KindForeignKeyViolation:               ForeignKeyViolation,
	KindUniqueViolation:                   UniqueViolation,
	KindCheckViolation:                    CheckViolation,
	KindExclusionViolation:                ExclusionViolation,
	KindStringDataRightTruncation:         StringDataRightTruncation,
	KindNumericValueOutOfRange:            NumericValueOutOfRange,
	KindDivisionByZero:                    DivisionByZero,
	KindInvalidTextRepresentation:         InvalidTextRepresentation,
	KindInvalidTransactionState:           InvalidTransactionState,
	KindInFailedSQLTransaction:            InFailedSQLTransaction,
	KindActiveSQLTransaction:              ActiveSQLTransaction,
	KindNoActiveSQLTransaction:            NoActiveSQLTransaction,
	KindDeadlockDetected:                  DeadlockDetected,
	KindSerializationFailure:              SerializationFailure,
	KindQueryCanceled:                     QueryCanceled,
	KindAdminShutdown:                     AdminShutdown,
	KindCrashShutdown:                     CrashShutdown,
	KindCannotConnectNow:                  CannotConnectNow,
	KindTooManyConnections:                TooManyConnections,
	KindOutOfMemory:                       OutOfMemory,
	KindDiskFull:                          DiskFull,
	KindConfigurationLimitExceeded:        ConfigurationLimitExceeded,
	KindInternalError:                     Internal,
	KindDataCorrupted:                     DataCorrupted,
	KindFeatureNotSupported:               FeatureNotSupported,
	KindUncategorized:                     Uncategorized,
}

// codeToKind is the reverse of KindToCode, plus the extra codes that share a
// condition name with a canonical entry above (the duplicate-key case).
var codeToKind = func() map[Code]Kind {
	m := make(map[Code]Kind, len(KindToCode)+1)
	for kind, code := range KindToCode {
		m[code] = kind
	}

	// WarningStringDataRightTruncation ("01004") names the same condition
	// as the class-22 StringDataRightTruncation ("22001") but is never the
	// canonical code for it.
	m[WarningStringDataRightTruncation] = KindStringDataRightTruncation
	return m
}()

// KindOf returns the Kind a code is documented as, and whether one is known.
func KindOf(code Code) (Kind, bool) {
	kind, ok := codeToKind[code]
	return kind, ok
}
