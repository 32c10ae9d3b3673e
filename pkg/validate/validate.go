package validate

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// Form-input validation rules. These run client-side, before any network
// call; a failure here blocks the action locally and never reaches the
// service layer.

const (
	minPasswordLen = 6
	minNameLen     = 2
	maxNameLen     = 100
)

// Email checks that s looks like a deliverable address.
func Email(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// Password enforces the minimum length rule.
func Password(s string) error {
	if len(s) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// PasswordConfirmation checks the confirm field matches.
func PasswordConfirmation(password, confirm string) error {
	if password != confirm {
		return fmt.Errorf("passwords don't match")
	}
	return nil
}

// Name bounds a display name.
func Name(s string) error {
	s = strings.TrimSpace(s)
	if len(s) < minNameLen {
		return fmt.Errorf("name must be at least %d characters", minNameLen)
	}
	if len(s) > maxNameLen {
		return fmt.Errorf("name is too long")
	}
	return nil
}

// URL checks s is a syntactically valid absolute http(s) URL.
func URL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url")
	}
	return nil
}

// allowed HTTP methods for api data sources.
var apiMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {},
}

// DataSource applies the per-variant submission rules: sql needs a parseable
// connection string and a screened query, api needs a valid URL and a known
// method, csv needs its (external) upload to have happened, which is not
// observable here.
func DataSource(ds models.DataSource) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	switch ds.Type {
	case models.DataSourceSQL:
		if err := SQLConnectionString(ds.SQL.ConnectionString); err != nil {
			return err
		}
	case models.DataSourceAPI:
		if err := URL(ds.API.URL); err != nil {
			return err
		}
		if ds.API.Method != "" {
			if _, ok := apiMethods[strings.ToUpper(ds.API.Method)]; !ok {
				return fmt.Errorf("unsupported http method %q", ds.API.Method)
			}
		}
	}
	return nil
}

// Cron checks expr is a valid 5-field cron expression.
func Cron(expr string) error {
	if fields := strings.Fields(expr); len(fields) != 5 {
		return fmt.Errorf("cron expression must have 5 fields")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
