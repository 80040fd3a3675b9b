package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Stage selects which part of the pipeline runs.
type Stage string

const (
	StageCollect Stage = "collect"
	StageEnrich  Stage = "enrich"
	StageExport  Stage = "export"
	StageAll     Stage = "all"
)

// ParseStage parses a stage name, case-insensitively.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(strings.ToLower(strings.TrimSpace(s))); st {
	case StageCollect, StageEnrich, StageExport, StageAll:
		return st, nil
	default:
		return "", eris.Errorf("unknown stage %q (want collect, enrich, export or all)", s)
	}
}

// Steps expands a stage into the ordered list of concrete stages it runs.
func (s Stage) Steps() []Stage {
	if s == StageAll {
		return []Stage{StageCollect, StageEnrich, StageExport}
	}
	return []Stage{s}
}
