package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrKind classifies an adapter failure for the failover decision and for the
// aggregated all-sources-failed report.
type ErrKind string

const (
	KindNetwork ErrKind = "network"
	KindParse   ErrKind = "parse"
	KindEmpty   ErrKind = "empty"
)

// ErrSeriesUnsupported marks a provider that has no kline endpoint. The
// orchestrator skips it without counting the attempt as a real failure.
var ErrSeriesUnsupported = errors.New("market: provider does not serve series")

type FetchError struct {
	Source string
	Kind   ErrKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func networkErr(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindNetwork, Err: err}
}

func parseErr(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindParse, Err: err}
}

func emptyErr(source string, err error) *FetchError {
	return &FetchError{Source: source, Kind: KindEmpty, Err: err}
}

// AllFailedError aggregates one error per attempted adapter. It is the only
// way adapter failures escape the MultiProvider.
type AllFailedError struct {
	Op       string
	Attempts []*FetchError
}

func (e *AllFailedError) Error() string {
	causes := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		causes = append(causes, a.Error())
	}
	return fmt.Sprintf("%s: no data available, causes: [%s]", e.Op, strings.Join(causes, "; "))
}
