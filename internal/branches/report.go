package branches

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Supported report formats.
const (
	OutputFormatText = "text"
	OutputFormatYAML = "yaml"
)

const (
	unsupportedOutputFormatTemplateConstant = "unsupported output format %q"
	reportHeaderTemplateConstant            = "RUN: %s (%s)\n"
	reportModeAcknowledgedConstant          = "deleting"
	reportModePretendConstant               = "pretend mode, nothing deleted"
	reportLineTemplateConstant              = "%s: %s\n"
	reportSummaryTemplateConstant           = "SUMMARY: remote_deleted=%d local_deleted=%d already_absent=%d warnings=%d failures=%d\n"
	plannedRemoteLabelConstant              = "WOULD DELETE REMOTE"
	plannedLocalLabelConstant               = "WOULD DELETE LOCAL"
	deletedRemoteLabelConstant              = "DELETED REMOTE"
	deletedLocalLabelConstant               = "DELETED LOCAL"
	alreadyAbsentLabelConstant              = "ALREADY ABSENT"
	warningLabelConstant                    = "WARNING"
	failureLabelConstant                    = "FAILED"
	recordSeparatorConstant                 = " "
	remoteBranchSeparatorConstant           = "/"
)

// OutputFormats lists the supported report encodings.
func OutputFormats() []string {
	return []string{OutputFormatText, OutputFormatYAML}
}

// BranchRecord identifies one branch touched or considered by a cleanup run.
type BranchRecord struct {
	Checkout string `yaml:"checkout"`
	Remote   string `yaml:"remote,omitempty"`
	Branch   string `yaml:"branch"`
	Head     string `yaml:"head,omitempty"`
}

// String renders the checkout path followed by the tracking name of the branch.
func (record BranchRecord) String() string {
	if len(record.Remote) == 0 {
		return record.Checkout + recordSeparatorConstant + record.Branch
	}
	return record.Checkout + recordSeparatorConstant + record.Remote + remoteBranchSeparatorConstant + record.Branch
}

// Report summarizes a cleanup run.
type Report struct {
	RunID         string         `yaml:"run_id"`
	Acknowledged  bool           `yaml:"acknowledged"`
	PlannedRemote []BranchRecord `yaml:"planned_remote"`
	PlannedLocal  []BranchRecord `yaml:"planned_local"`
	RemoteDeleted []BranchRecord `yaml:"remote_deleted"`
	LocalDeleted  []BranchRecord `yaml:"local_deleted"`
	AlreadyAbsent []BranchRecord `yaml:"already_absent"`
	Warnings      []string       `yaml:"warnings"`
	Failures      []string       `yaml:"failures"`
}

// Render writes the report in the requested format.
func (report Report) Render(writer io.Writer, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", OutputFormatText:
		return report.renderText(writer)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(2)
		if encodeError := encoder.Encode(report); encodeError != nil {
			return encodeError
		}
		return encoder.Close()
	default:
		return fmt.Errorf(unsupportedOutputFormatTemplateConstant, format)
	}
}

func (report Report) renderText(writer io.Writer) error {
	var builder strings.Builder
	mode := reportModePretendConstant
	if report.Acknowledged {
		mode = reportModeAcknowledgedConstant
	}
	fmt.Fprintf(&builder, reportHeaderTemplateConstant, report.RunID, mode)

	if !report.Acknowledged {
		writeRecords(&builder, plannedRemoteLabelConstant, report.PlannedRemote)
		writeRecords(&builder, plannedLocalLabelConstant, report.PlannedLocal)
	}
	writeRecords(&builder, deletedRemoteLabelConstant, report.RemoteDeleted)
	writeRecords(&builder, deletedLocalLabelConstant, report.LocalDeleted)
	writeRecords(&builder, alreadyAbsentLabelConstant, report.AlreadyAbsent)
	for _, warning := range report.Warnings {
		fmt.Fprintf(&builder, reportLineTemplateConstant, warningLabelConstant, warning)
	}
	for _, failure := range report.Failures {
		fmt.Fprintf(&builder, reportLineTemplateConstant, failureLabelConstant, failure)
	}
	fmt.Fprintf(&builder, reportSummaryTemplateConstant, len(report.RemoteDeleted), len(report.LocalDeleted), len(report.AlreadyAbsent), len(report.Warnings), len(report.Failures))

	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

func writeRecords(builder *strings.Builder, label string, records []BranchRecord) {
	for _, record := range records {
		fmt.Fprintf(builder, reportLineTemplateConstant, label, record.String())
	}
}

// reportCollector accumulates outcomes from concurrently running deletion units.
type reportCollector struct {
	mutex  sync.Mutex
	report Report
}

func (collector *reportCollector) update(apply func(report *Report)) {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	apply(&collector.report)
}

func (collector *reportCollector) warn(message string) {
	collector.update(func(report *Report) { report.Warnings = append(report.Warnings, message) })
}

func (collector *reportCollector) fail(message string) {
	collector.update(func(report *Report) { report.Failures = append(report.Failures, message) })
}

func (collector *reportCollector) snapshot() Report {
	collector.mutex.Lock()
	defer collector.mutex.Unlock()

	result := collector.report
	for _, records := range []*[]BranchRecord{&result.PlannedRemote, &result.PlannedLocal, &result.RemoteDeleted, &result.LocalDeleted, &result.AlreadyAbsent} {
		*records = sortedRecords(*records)
	}
	result.Warnings = sortedMessages(result.Warnings)
	result.Failures = sortedMessages(result.Failures)
	return result
}

func sortedMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	sorted := append([]string{}, messages...)
	sort.Strings(sorted)
	return sorted
}

func sortedRecords(records []BranchRecord) []BranchRecord {
	if len(records) == 0 {
		return nil
	}
	sorted := append([]BranchRecord{}, records...)
	sort.SliceStable(sorted, func(left int, right int) bool {
		if sorted[left].Checkout != sorted[right].Checkout {
			return sorted[left].Checkout < sorted[right].Checkout
		}
		if sorted[left].Branch != sorted[right].Branch {
			return sorted[left].Branch < sorted[right].Branch
		}
		return sorted[left].Remote < sorted[right].Remote
	})
	return sorted
}
