package models

import (
	"encoding/json"
	"fmt"
)

// DataSourceType identifies where a report's underlying data comes from.
type DataSourceType string

const (
	DataSourceSQL DataSourceType = "sql"
	DataSourceAPI DataSourceType = "api"
	DataSourceCSV DataSourceType = "csv"
)

// SQLSourceConfig holds connection details for a SQL-backed data source.
type SQLSourceConfig struct {
	ConnectionString string `json:"connection_string"`
	Query            string `json:"query"`
}

// APISourceConfig holds request details for an HTTP-backed data source.
type APISourceConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// CSVSourceConfig references an uploaded file.
type CSVSourceConfig struct {
	FilePath string `json:"file_path,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// DataSource is a tagged union: exactly one of SQL, API, CSV is populated,
// matching Type. The wire shape is {"type": ..., "config": {...}}.
type DataSource struct {
	Type DataSourceType
	SQL  *SQLSourceConfig
	API  *APISourceConfig
	CSV  *CSVSourceConfig
}

// NewSQLDataSource builds a sql-typed data source.
func NewSQLDataSource(connectionString, query string) DataSource {
	return DataSource{
		Type: DataSourceSQL,
		SQL:  &SQLSourceConfig{ConnectionString: connectionString, Query: query},
	}
}

// NewAPIDataSource builds an api-typed data source.
func NewAPIDataSource(url, method string, headers map[string]string, body string) DataSource {
	return DataSource{
		Type: DataSourceAPI,
		API:  &APISourceConfig{URL: url, Method: method, Headers: headers, Body: body},
	}
}

// NewCSVDataSource builds a csv-typed data source referencing an uploaded file.
func NewCSVDataSource(filePath, fileName string) DataSource {
	return DataSource{
		Type: DataSourceCSV,
		CSV:  &CSVSourceConfig{FilePath: filePath, FileName: fileName},
	}
}

// DefaultDataSource is the repair value for missing or malformed stored
// data_source records: an empty csv source.
func DefaultDataSource() DataSource {
	return DataSource{Type: DataSourceCSV, CSV: &CSVSourceConfig{}}
}

// dataSourceWire is the persisted/JSON shape of a DataSource.
type dataSourceWire struct {
	Type   DataSourceType  `json:"type"`
	Config json.RawMessage `json:"config"`
}

// MarshalJSON encodes the union into the {"type", "config"} wire shape.
func (d DataSource) MarshalJSON() ([]byte, error) {
	var config any
	switch d.Type {
	case DataSourceSQL:
		if d.SQL != nil {
			config = d.SQL
		}
	case DataSourceAPI:
		if d.API != nil {
			config = d.API
		}
	case DataSourceCSV:
		if d.CSV != nil {
			config = d.CSV
		}
	}
	if config == nil {
		config = struct{}{}
	}
	raw, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data source config: %w", err)
	}
	return json.Marshal(dataSourceWire{Type: d.Type, Config: raw})
}

// UnmarshalJSON decodes the wire shape leniently. Stored data_source values
// that are missing, null, or not well-formed objects must not break a list
// render, so any malformed input decodes to the empty csv default instead of
// returning an error.
func (d *DataSource) UnmarshalJSON(data []byte) error {
	*d = ParseDataSource(data)
	return nil
}

// ParseDataSource decodes a stored data_source value, repairing anything
// malformed to the empty csv default. It never fails.
func ParseDataSource(data []byte) DataSource {
	if len(data) == 0 || string(data) == "null" {
		return DefaultDataSource()
	}

	var wire dataSourceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return DefaultDataSource()
	}

	ds := DataSource{Type: wire.Type}
	switch wire.Type {
	case DataSourceSQL:
		var cfg SQLSourceConfig
		if err := json.Unmarshal(wire.Config, &cfg); err != nil {
			return DefaultDataSource()
		}
		ds.SQL = &cfg
	case DataSourceAPI:
		var cfg APISourceConfig
		if err := json.Unmarshal(wire.Config, &cfg); err != nil {
			return DefaultDataSource()
		}
		ds.API = &cfg
	case DataSourceCSV:
		var cfg CSVSourceConfig
		if len(wire.Config) > 0 {
			if err := json.Unmarshal(wire.Config, &cfg); err != nil {
				return DefaultDataSource()
			}
		}
		ds.CSV = &cfg
	default:
		return DefaultDataSource()
	}
	return ds
}

// Validate checks that the populated config matches the declared type and
// carries the fields that type requires.
func (d DataSource) Validate() error {
	switch d.Type {
	case DataSourceSQL:
		if d.SQL == nil {
			return fmt.Errorf("sql data source missing config")
		}
		if d.SQL.ConnectionString == "" {
			return fmt.Errorf("sql data source requires a connection string")
		}
		if d.SQL.Query == "" {
			return fmt.Errorf("sql data source requires a query")
		}
	case DataSourceAPI:
		if d.API == nil {
			return fmt.Errorf("api data source missing config")
		}
		if d.API.URL == "" {
			return fmt.Errorf("api data source requires a url")
		}
	case DataSourceCSV:
		if d.CSV == nil {
			return fmt.Errorf("csv data source missing config")
		}
	default:
		return fmt.Errorf("unknown data source type %q", d.Type)
	}
	return nil
}
