package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"ec2-pricing/pkg/models"
)

var instanceTypeHeader = []string{"API Name", "Name", "Cores", "ECUs", "RAM", "Disk", "SSD", "Arch", "I/O", "EBS-Optimized", "EBS Only"}

// WriteInstanceTypes renders types as a table or as JSON.
func WriteInstanceTypes(w io.Writer, types []models.InstanceType, format string) error {
	if format != TableFormat {
		return writeJSON(w, types, format)
	}

	table := newTable(w, instanceTypeHeader)
	for _, t := range types {
		table.Append([]string{
			t.APIName,
			t.Name,
			strconv.Itoa(t.Cores),
			strconv.FormatFloat(t.ECUs, 'f', -1, 64),
			t.RAM,
			formatDisk(t.Disk),
			yesNo(t.SSD),
			formatArchitectures(t.Architectures),
			orDash(t.IOPerformance),
			orDash(t.EBSOptimized),
			yesNo(t.EBSOnly),
		})
	}
	table.Render()
	return nil
}

// Evaluation is the pricing of one node group.
type Evaluation struct {
	Group        models.NodeGroup     `json:"group"`
	Cores        int                  `json:"cores,omitempty"`
	RAM          string               `json:"ram,omitempty"`
	OnDemand     float64              `json:"on_demand"`
	Spot         float64              `json:"spot"`
	Savings      float64              `json:"savings_percent"`
	Replacements []models.Replacement `json:"replacements,omitempty"`
}

var evaluationHeader = []string{"Instance", "AZ", "Count", "Spot Node", "Cores", "RAM", "On-Demand", "Spot", "Savings"}

// WriteEvaluations renders evaluations followed by the replacement
// suggestions of every group that has some.
func WriteEvaluations(w io.Writer, evaluations []Evaluation, format string) error {
	if format != TableFormat {
		return writeJSON(w, evaluations, format)
	}

	table := newTable(w, evaluationHeader)
	for _, e := range evaluations {
		table.Append([]string{
			e.Group.InstanceType,
			e.Group.AZ,
			strconv.Itoa(e.Group.Count),
			yesNo(e.Group.IsSpot),
			strconv.Itoa(e.Cores),
			orDash(e.RAM),
			fmt.Sprintf("$%.4f", e.OnDemand),
			fmt.Sprintf("$%.4f", e.Spot),
			fmt.Sprintf("%.2f%%", e.Savings),
		})
	}
	table.Render()

	for _, e := range evaluations {
		if len(e.Replacements) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s in %s, replacements with additional spot savings ($/hour):\n", e.Group.InstanceType, e.Group.AZ)
		for _, alt := range e.Replacements {
			fmt.Fprintf(w, "  - %-12s spot=$%-10.4f save/node=$%-8.4f save/group=$%-8.4f\n",
				alt.InstanceType, alt.SpotPrice, alt.SavingsPerNodePerHour, alt.SavingsPerGroupPerHour)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}, format string) error {
	var (
		output []byte
		err    error
	)
	if format == PrettyFormat {
		output, err = json.MarshalIndent(v, "", "  ")
	} else {
		output, err = json.Marshal(v)
	}
	if err != nil {
		return errors.Wrap(err, "marshal output")
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	return table
}

func formatDisk(disk *int) string {
	if disk == nil {
		return "-"
	}
	return humanize.Comma(int64(*disk)) + " GB"
}

func formatArchitectures(archs []int) string {
	parts := make([]string, len(archs))
	for i, a := range archs {
		parts[i] = strconv.Itoa(a) + "-bit"
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
