package core

// Logger logs application messages and reports errors to whatever error
// tracking backend is configured (see services/logger).
//
// args may carry anything worth attaching to the report: an error, a
// map[string]interface{} of extra context, or the acting user.User.
type Logger interface {
	// Enable turns error reporting on/off; local printing is unaffected.
	Enable(enabled bool)

	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
