package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// appendChangelog 向 CHANGELOG_{position}.md 头部插入一条版本记录，
// 历史条目原样保留（新条目在前）。文件不存在时创建并写入标题。
func appendChangelog(dir, position, version string, changes []string) error {
	path := filepath.Join(dir, fmt.Sprintf("CHANGELOG_%s.md", position))
	header := fmt.Sprintf("# ScoutKit %s Model Changelog", strings.ToUpper(position))

	var history string
	if data, err := os.ReadFile(path); err == nil {
		text := string(data)
		// 跳过标题行，保留既有版本条目
		if idx := strings.Index(text, "\n## "); idx >= 0 {
			history = text[idx+1:]
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("## [%s] - %s\n\n", version, time.Now().UTC().Format("2006-01-02")))
	b.WriteString("### Changed\n\n")
	for _, change := range changes {
		b.WriteString("- ")
		b.WriteString(change)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if history != "" {
		b.WriteString(history)
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// ChangelogPath 返回某位置变更日志的文件路径
func ChangelogPath(dir, position string) string {
	return filepath.Join(dir, fmt.Sprintf("CHANGELOG_%s.md", strings.ToLower(position)))
}
