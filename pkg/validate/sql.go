package validate

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/draftmill-inc/draftmill-client/pkg/models"
)

// SQLConnectionString validates a sql data source connection string. URLs
// with a recognized driver scheme are parsed with that driver's own parser;
// other non-empty strings are passed through for the processing backend to
// judge.
func SQLConnectionString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("connection string is required")
	}

	scheme, _, found := strings.Cut(s, "://")
	if !found {
		return nil
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		if _, err := pgconn.ParseConfig(s); err != nil {
			return fmt.Errorf("invalid postgres connection string: %w", err)
		}
	case "sqlserver", "mssql":
		if _, err := msdsn.Parse(s); err != nil {
			return fmt.Errorf("invalid sql server connection string: %w", err)
		}
	}
	return nil
}

// InjectionFinding describes a parameter value flagged as a SQL injection
// pattern.
type InjectionFinding struct {
	ParamName   string
	Fingerprint string
}

// ScreenParams runs libinjection over string parameter values. The query
// text of a sql data source is legitimately SQL and is not screened; user
// supplied parameter values are. Non-string values cannot carry injection
// and are skipped.
func ScreenParams(params map[string]any) []InjectionFinding {
	var findings []InjectionFinding
	for name, value := range params {
		str, ok := value.(string)
		if !ok {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(str); isSQLi {
			findings = append(findings, InjectionFinding{
				ParamName:   name,
				Fingerprint: string(fingerprint),
			})
		}
	}
	return findings
}

// ScreenSubmission screens the user supplied values of a generation request:
// the report parameters plus, for api sources, header values and the request
// body. The query text of a sql source is legitimately SQL and stays out of
// scope.
func ScreenSubmission(ds models.DataSource, params map[string]any) []InjectionFinding {
	values := make(map[string]any, len(params))
	for name, value := range params {
		values[name] = value
	}
	if ds.Type == models.DataSourceAPI && ds.API != nil {
		for name, value := range ds.API.Headers {
			values["header "+name] = value
		}
		if ds.API.Body != "" {
			values["body"] = ds.API.Body
		}
	}
	return ScreenParams(values)
}
