package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/rushteam/scoutkit/core"
)

// versionPattern 语义化版本：major.minor.patch，可带预发布后缀
var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([a-zA-Z0-9\-\.]+))?$`)

// Version 解析后的语义化版本
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Raw        string
}

// ParseVersion 解析语义化版本字符串。
// 非法格式返回 VERSION_INVALID 错误。
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeVersionInvalid,
			fmt.Sprintf("registry: invalid version format %q, use semantic versioning (e.g. \"1.2.0\" or \"1.2.0-beta\")", s))
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	return Version{Major: major, Minor: minor, Patch: patch, Prerelease: m[4], Raw: s}, nil
}

// ValidVersion 检查版本字符串是否为合法语义化版本
func ValidVersion(s string) bool {
	return versionPattern.MatchString(s)
}

// Compare 按数值元组 (major, minor, patch) 比较两个版本，
// 预发布后缀不参与排序（1.2.0-beta 与 1.2.0 同序）。
// 返回 -1 / 0 / +1。
func Compare(a, b Version) int {
	if a.Major != b.Major {
		return sign(a.Major - b.Major)
	}
	if a.Minor != b.Minor {
		return sign(a.Minor - b.Minor)
	}
	return sign(a.Patch - b.Patch)
}

func sign(d int) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// SortVersions 把版本字符串按语义化版本降序排列（最新在前）。
// 1.10.0 排在 1.2.0 之前（数值比较，非字符串比较）。
// 非法版本被过滤掉。
func SortVersions(versions []string) []string {
	parsed := make([]Version, 0, len(versions))
	for _, s := range versions {
		if v, err := ParseVersion(s); err == nil {
			parsed = append(parsed, v)
		}
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		return Compare(parsed[i], parsed[j]) > 0
	})
	out := make([]string, len(parsed))
	for i, v := range parsed {
		out[i] = v.Raw
	}
	return out
}
