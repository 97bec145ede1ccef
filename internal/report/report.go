// internal/report/report.go
package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/nsreconcile/api/schemas"
)

// ErrNoReportData is returned when a report file holds no assessment report.
var ErrNoReportData = errors.New("no report data")

// envelope is the platform's query response wrapping assessments.
type envelope struct {
	Data *struct {
		Auto *struct {
			Assessments []schemas.Assessment `json:"assessments"`
		} `json:"auto"`
	} `json:"data"`
}

// Load reads an assessment from a JSON report file. The file holds either
// a bare assessment or the platform response envelope
// {"data":{"auto":{"assessments":[...]}}}, in which case the first
// assessment is used.
func Load(path string) (schemas.Assessment, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return schemas.Assessment{}, fmt.Errorf("expanding report path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return schemas.Assessment{}, fmt.Errorf("reading report: %w", err)
	}
	return Decode(data)
}

// Decode parses report data in either accepted shape.
func Decode(data []byte) (schemas.Assessment, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return schemas.Assessment{}, ErrNoReportData
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return schemas.Assessment{}, fmt.Errorf("decoding report: %w", err)
	}
	if env.Data != nil {
		if env.Data.Auto == nil || len(env.Data.Auto.Assessments) == 0 {
			return schemas.Assessment{}, ErrNoReportData
		}
		return validate(env.Data.Auto.Assessments[0])
	}

	var assessment schemas.Assessment
	if err := json.Unmarshal(data, &assessment); err != nil {
		return schemas.Assessment{}, fmt.Errorf("decoding report: %w", err)
	}
	return validate(assessment)
}

func validate(a schemas.Assessment) (schemas.Assessment, error) {
	if a.Report == nil {
		return schemas.Assessment{}, ErrNoReportData
	}
	return a, nil
}
