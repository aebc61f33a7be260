package core

// Logger is any service that can log and report messages and errors.
// args may contain errors, extra data (map[string]interface{}) and the logged in user.User.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
