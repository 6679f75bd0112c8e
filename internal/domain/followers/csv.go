package followers

import (
	"strconv"
	"strings"
)

// CSVHeader is the fixed 18-column export schema.
var CSVHeader = []string{
	"User ID",
	"ID",
	"Username",
	"Name",
	"Description",
	"Location",
	"Website",
	"Created At",
	"Followers Count",
	"Following Count",
	"Tweets Count",
	"Media Count",
	"Verified",
	"Business Account",
	"Tags",
	"AI Analysis Notes",
	"Bot Score",
	"Prompt Match Score",
}

// ExportCSV renders an ordered record sequence as a canonical CSV document:
// the fixed header row followed by one row per record in input order. The
// header is emitted bare; every data cell is double-quoted with embedded
// quotes doubled, and absent fields render as the empty string. Total for any
// well-formed input, including the empty sequence (header-only output). A
// partial mid-stream snapshot produces a valid document the same way a final
// one does.
func ExportCSV(records []Record) string {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(CSVHeader, ","))
	for _, r := range records {
		lines = append(lines, csvRow(recordCells(r)))
	}
	return strings.Join(lines, "\n")
}

// ExportFilename derives the artifact name from the normalized identifier.
func ExportFilename(identifier string) string {
	return strings.TrimPrefix(strings.TrimSpace(identifier), "@") + "_analyzed_followers.csv"
}

func recordCells(r Record) []string {
	return []string{
		r.UserID,
		r.ID,
		r.ScreenName,
		r.Name,
		r.Description,
		r.Location,
		r.Website,
		r.CreatedAt,
		strconv.Itoa(r.FollowersCount),
		strconv.Itoa(r.FriendsCount),
		strconv.Itoa(r.StatusesCount),
		strconv.Itoa(r.MediaCount),
		yesNo(r.BlueVerified),
		yesNo(r.BusinessAccount),
		strings.Join(r.Tags, ", "),
		r.AIAnalysisNotes,
		scoreCell(r.BotScore),
		scoreCell(r.PromptMatchScore),
	}
}

func csvRow(cells []string) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(c, `"`, `""`))
		b.WriteByte('"')
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func scoreCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
