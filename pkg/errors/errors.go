package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/version"
	"github.com/cloudfleet/cloudfleet-cli/pkg/config"
)

type FleetError interface {
	// Error returns a user-facing string explaining the error
	Error() string

	// Directive returns a user-facing string explaining how to overcome the error
	Directive() string
}

type ErrorReporter interface {
	Setup() func()
	ReportError(error) string
	AddTag(key string, value string)
}

func GetDefaultErrorReporter() ErrorReporter {
	return SentryErrorReporter{dsn: config.GlobalConfig.GetSentryDSN()}
}

// SentryErrorReporter is a no-op until a dsn is configured.
type SentryErrorReporter struct {
	dsn string
}

var _ ErrorReporter = SentryErrorReporter{}

func (s SentryErrorReporter) Setup() func() {
	if s.dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:     s.dsn,
			Release: version.Version,
		})
		if err != nil {
			fmt.Println(err)
		}
	}
	return func() {
		err := recover()
		if err != nil {
			sentry.CurrentHub().Recover(err)
			sentry.Flush(time.Second * 5)
			panic(err)
		}
		sentry.Flush(2 * time.Second)
	}
}

func (s SentryErrorReporter) ReportError(e error) string {
	event := sentry.CaptureException(e)
	if event != nil {
		return string(*event)
	}
	return ""
}

func (s SentryErrorReporter) AddTag(key string, value string) {
	scope := sentry.CurrentHub().Scope()
	scope.SetTag(key, value)
}

type ValidationError struct {
	Message string
}

func NewValidationError(message string) ValidationError {
	return ValidationError{Message: message}
}

var _ error = ValidationError{}

func (v ValidationError) Error() string {
	return v.Message
}

type VendorCLINotFound struct {
	Binary string
}

func (e *VendorCLINotFound) Error() string {
	return fmt.Sprintf("%s not found in PATH", e.Binary)
}

func (e *VendorCLINotFound) Directive() string {
	return "install the cloud cli or set cli.binary in ~/.cloudfleet/config.yaml"
}

type EmptyCache struct{}

func (e *EmptyCache) Error() string     { return "no environments cached" }
func (e *EmptyCache) Directive() string { return "run `cloudfleet sync` first" }

func WrapAndTrace(err error, messages ...string) error {
	message := ""
	for _, m := range messages {
		message += fmt.Sprintf(" %s", m)
	}
	return errors.Wrap(err, MakeErrorMessage(message))
}

func MakeErrorMessage(message string) string {
	_, fn, line, _ := runtime.Caller(2)
	return fmt.Sprintf("[error] %s:%d %s\n\t", fn, line, message)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// ReportCmdError sends err to the reporter tagged with the command that
// failed. User input errors are not reported. Returns whether it reported.
func ReportCmdError(er ErrorReporter, command string, err error) bool {
	if err == nil {
		return false
	}
	var validation ValidationError
	if As(err, &validation) {
		return false
	}
	er.AddTag("command", command)
	er.ReportError(err)
	return true
}
