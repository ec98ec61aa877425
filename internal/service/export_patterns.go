package service

import (
	"regexp"
	"strconv"
	"strings"

	"go-timetable-admin/internal/model"
)

const timestampPattern = `\d{4}_\d{2}_\d{2}_\d{2}_\d{2}_\d{2}`

var (
	reportExtensions = []string{"pdf", "xlsx", "csv"}
	backupExtensions = []string{"zip", "sql"}
)

// exportKind is one family of generated files, e.g. "faculty_schedule".
type exportKind struct {
	prefix     string
	extensions []string
}

var (
	adminKinds = []exportKind{
		{prefix: "admin_users", extensions: reportExtensions},
		{prefix: "admin_system_stats", extensions: reportExtensions},
		{prefix: "admin_reports", extensions: reportExtensions},
		{prefix: "system_backup", extensions: backupExtensions},
	}
	facultyKinds = []exportKind{
		{prefix: "faculty_schedule", extensions: reportExtensions},
		{prefix: "faculty_students", extensions: reportExtensions},
		{prefix: "faculty_reports", extensions: reportExtensions},
	}
	studentKinds = []exportKind{
		{prefix: "student_schedule", extensions: reportExtensions},
		{prefix: "student_enrollments", extensions: reportExtensions},
		{prefix: "student_transcript", extensions: reportExtensions},
	}
)

var (
	adminAllowList = compileKinds(adminKinds, "")

	// anyExportName recognises every export family with any numeric owner id.
	anyExportName = compileAnyExport()
)

// AllowList returns the filename patterns a role may download. Faculty and
// student patterns embed scopeID literally so they only match the caller's
// own exports.
func AllowList(role model.Role, scopeID int64) []*regexp.Regexp {
	switch role {
	case model.RoleAdmin:
		return adminAllowList
	case model.RoleFaculty:
		return compileKinds(facultyKinds, regexp.QuoteMeta(strconv.FormatInt(scopeID, 10)))
	case model.RoleStudent:
		return compileKinds(studentKinds, regexp.QuoteMeta(strconv.FormatInt(scopeID, 10)))
	default:
		return nil
	}
}

// MatchAllowList reports whether filename matches at least one pattern.
func MatchAllowList(patterns []*regexp.Regexp, filename string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(filename) {
			return true
		}
	}
	return false
}

// IsExportName reports whether filename has the shape of any generated export.
func IsExportName(filename string) bool {
	return anyExportName.MatchString(filename)
}

func compileKinds(kinds []exportKind, scope string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(kinds))
	for _, kind := range kinds {
		patterns = append(patterns, regexp.MustCompile(buildPattern(kind, scope)))
	}
	return patterns
}

// buildPattern assembles ^prefix_[scope_]TIMESTAMP.(ext|ext)$. The prefix and
// extensions are quoted; scope must already be a valid regexp fragment.
func buildPattern(kind exportKind, scope string) string {
	var b strings.Builder
	b.WriteString("^")
	b.WriteString(regexp.QuoteMeta(kind.prefix))
	b.WriteString("_")
	if scope != "" {
		b.WriteString(scope)
		b.WriteString("_")
	}
	b.WriteString(timestampPattern)
	b.WriteString(`\.(?:`)
	for i, ext := range kind.extensions {
		if i > 0 {
			b.WriteString("|")
		}
		b.WriteString(regexp.QuoteMeta(ext))
	}
	b.WriteString(")$")
	return b.String()
}

func compileAnyExport() *regexp.Regexp {
	alternatives := make([]string, 0, len(adminKinds)+len(facultyKinds)+len(studentKinds))
	for _, kind := range adminKinds {
		alternatives = append(alternatives, "(?:"+buildPattern(kind, "")+")")
	}
	for _, kind := range append(append([]exportKind{}, facultyKinds...), studentKinds...) {
		alternatives = append(alternatives, "(?:"+buildPattern(kind, `\d+`)+")")
	}
	return regexp.MustCompile(strings.Join(alternatives, "|"))
}
