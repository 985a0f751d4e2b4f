package state

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

// RenderChangelog renders a delta as Markdown: title, timestamp range,
// one table per change class, and per-field bullets under each modified
// record. Output is fully deterministic.
func RenderChangelog(delta *models.Delta, before, after *models.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Inventory Changelog\n\n")
	fmt.Fprintf(&b, "Comparing `%s` → `%s`\n\n", delta.SnapshotIDBefore, delta.SnapshotIDAfter)
	fmt.Fprintf(&b, "Period: %s to %s\n\n",
		before.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		after.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**%d added, %d removed, %d modified, %d unchanged**\n\n",
		len(delta.Added), len(delta.Removed), len(delta.Modified), delta.UnchangedCount)

	writeRecordSection(&b, "Added", delta.Added)
	writeRecordSection(&b, "Removed", delta.Removed)
	writeModifiedSection(&b, delta.Modified)

	return b.String()
}

func writeRecordSection(b *strings.Builder, title string, records []models.Resource) {
	fmt.Fprintf(b, "## %s (%d)\n\n", title, len(records))
	if len(records) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	table := markdownTable(b, []string{"Account", "Service", "Type", "Region", "Resource ID", "Name"})
	for _, record := range records {
		table.Append([]string{
			record.AccountID, record.Service, record.Type,
			record.Region, record.ResourceID, record.Name,
		})
	}
	table.Render()
	b.WriteString("\n")
}

func writeModifiedSection(b *strings.Builder, modified []models.ModifiedRecord) {
	fmt.Fprintf(b, "## Modified (%d)\n\n", len(modified))
	if len(modified) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	for _, record := range modified {
		fmt.Fprintf(b, "### `%s`\n\n", record.Key)
		for _, change := range record.Changes {
			writeFieldChange(b, change)
		}
		b.WriteString("\n")
	}
}

func writeFieldChange(b *strings.Builder, change models.FieldChange) {
	if change.Changeset == nil {
		fmt.Fprintf(b, "- **%s**: `%v` → `%v`\n", change.Field, change.Old, change.New)
		return
	}
	fmt.Fprintf(b, "- **%s**:\n", change.Field)
	for _, key := range sortedMapKeys(change.Changeset.Added) {
		fmt.Fprintf(b, "  - added `%s` = `%s`\n", key, change.Changeset.Added[key])
	}
	for _, key := range sortedMapKeys(change.Changeset.Removed) {
		fmt.Fprintf(b, "  - removed `%s` (was `%s`)\n", key, change.Changeset.Removed[key])
	}
	for _, key := range sortedPairKeys(change.Changeset.Modified) {
		pair := change.Changeset.Modified[key]
		fmt.Fprintf(b, "  - changed `%s`: `%s` → `%s`\n", key, pair[0], pair[1])
	}
}

// renderSnapshotMarkdown is the markdown export of a full snapshot:
// header, compliance summary, then the record table.
func renderSnapshotMarkdown(snapshot *models.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Inventory Snapshot `%s`\n\n", snapshot.SnapshotID)
	fmt.Fprintf(&b, "Created: %s\n\n", snapshot.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Accounts: %s\n\n", strings.Join(snapshot.AccountIDs, ", "))
	fmt.Fprintf(&b, "Regions: %s\n\n", strings.Join(snapshot.Regions, ", "))

	b.WriteString("## Compliance\n\n")
	summary := markdownTable(&b, []string{"Total", "Compliant", "Non-compliant", "Untagged", "Compliance %"})
	summary.Append([]string{
		fmt.Sprintf("%d", snapshot.ComplianceSummary.Total),
		fmt.Sprintf("%d", snapshot.ComplianceSummary.Compliant),
		fmt.Sprintf("%d", snapshot.ComplianceSummary.NonCompliant),
		fmt.Sprintf("%d", snapshot.ComplianceSummary.Untagged),
		fmt.Sprintf("%.2f", snapshot.ComplianceSummary.CompliancePercentage),
	})
	summary.Render()
	b.WriteString("\n## Resources\n\n")

	table := markdownTable(&b, []string{"Account", "Service", "Type", "Region", "Resource ID", "Status"})
	for _, record := range snapshot.Records {
		table.Append([]string{
			record.AccountID, record.Service, record.Type,
			record.Region, record.ResourceID, string(record.ComplianceStatus),
		})
	}
	table.Render()
	return b.String()
}

// markdownTable configures a tablewriter for pipe-delimited Markdown
func markdownTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	return table
}

func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedPairKeys(m map[string][2]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
