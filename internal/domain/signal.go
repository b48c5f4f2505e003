package domain

import "fmt"

// SignalStatus is the status component of a completion signal file name.
type SignalStatus string

const (
	SignalPass SignalStatus = "PASS"
	SignalFail SignalStatus = "FAIL"
)

// CompletionDirName is the subdirectory of the run's output directory where
// externally-launched scripts drop their completion signal files.
const CompletionDirName = "completion"

// CompletionSignal is the body of a signal file written by the script when
// it finishes. There is no synchronous return channel from the host
// application, so this artifact is the only completion evidence.
type CompletionSignal struct {
	Success bool   `json:"success"`
	Details string `json:"details"`
}

// SignalFileName builds the signal file name for one (file, status) pair.
// Names are namespaced by project so concurrent runs against different
// projects never consume each other's signals.
func SignalFileName(fileName, projectName string, status SignalStatus) string {
	return fmt.Sprintf("%s_%s_%s.json", fileName, projectName, status)
}
