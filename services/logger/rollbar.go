package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// RollbarLogger reports to rollbar and prints every entry to a std logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare splits args into rollbar args and the logged in user.
// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) (rbArgs []interface{}, usr *user.User) {
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		if u, ok := arg.(user.User); ok {
			if usr == nil { // only set one User
				usr = &u
			}
			continue
		}
		rbArgs = append(rbArgs, arg)
	}
	if usr != nil {
		rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
	} else {
		rollbar.ClearPerson()
	}
	return rbArgs, usr
}

func (l RollbarLogger) print(level, msg string, args []interface{}, usr *user.User) {
	if usr != nil {
		l.std.Printf("[%s] %s (user: %s, role: %s)\n", level, msg, usr.ID, usr.Role)
	} else {
		l.std.Printf("[%s] %s\n", level, msg)
	}
	for _, arg := range args[1:] {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, usr := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	l.print("DEBUG", msg, rbArgs, usr)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, usr := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	l.print("INFO", msg, rbArgs, usr)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, usr := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	l.print("WARN", msg, rbArgs, usr)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, usr := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	l.print("ERROR", msg, rbArgs, usr)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, usr := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	rollbar.Wait()
	l.print("FATAL", msg, rbArgs, usr)
	l.std.Fatal(msg)
}
