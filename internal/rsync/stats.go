package rsync

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// Stats aggregated from rsync --stats output.
type Stats struct {
	NumFiles             int64
	RegFiles             int64 // from Number of files (reg)
	DirFiles             int64 // from Number of files (dir)
	LinkFiles            int64 // from Number of files (link/sym)
	CreatedFiles         int64
	DeletedFiles         int64
	RegTransferred       int64
	TotalFileSize        int64
	TotalTransferredSize int64
	BytesSent            int64
	BytesReceived        int64
}

var statLines = []struct {
	re    *regexp.Regexp
	apply func(s *Stats, m []string)
}{
	{regexp.MustCompile(`^\s*Number of files:\s+([0-9,]+)(?:\s*\(([^)]+)\))?`), func(s *Stats, m []string) {
		s.NumFiles = toInt(m[1])
		categories(m[2], func(key string, val int64) {
			switch key {
			case "reg":
				s.RegFiles = val
			case "dir":
				s.DirFiles = val
			case "link", "sym":
				s.LinkFiles = val
			}
		})
	}},
	{regexp.MustCompile(`^\s*Number of created files:\s+([0-9,]+)`), func(s *Stats, m []string) { s.CreatedFiles = toInt(m[1]) }},
	{regexp.MustCompile(`^\s*Number of deleted files:\s+([0-9,]+)`), func(s *Stats, m []string) { s.DeletedFiles = toInt(m[1]) }},
	{regexp.MustCompile(`^\s*Number of regular files transferred:\s+([0-9,]+)`), func(s *Stats, m []string) { s.RegTransferred = toInt(m[1]) }},
	{regexp.MustCompile(`^\s*Total file size:\s+([0-9.,A-Za-z]+)`), func(s *Stats, m []string) { s.TotalFileSize = toBytes(m[1]) }},
	{regexp.MustCompile(`^\s*Total transferred file size:\s+([0-9.,A-Za-z]+)`), func(s *Stats, m []string) { s.TotalTransferredSize = toBytes(m[1]) }},
	{regexp.MustCompile(`^\s*Total bytes sent:\s+([0-9.,A-Za-z]+)`), func(s *Stats, m []string) { s.BytesSent = toBytes(m[1]) }},
	{regexp.MustCompile(`^\s*Total bytes received:\s+([0-9.,A-Za-z]+)`), func(s *Stats, m []string) { s.BytesReceived = toBytes(m[1]) }},
}

// ParseStats parses rsync --stats output from scanner. Lines that are not
// part of the statistics block are skipped.
func ParseStats(sc *bufio.Scanner) (Stats, error) {
	var s Stats
	for sc.Scan() {
		line := sc.Text()
		for _, l := range statLines {
			if m := l.re.FindStringSubmatch(line); m != nil {
				l.apply(&s, m)
				break
			}
		}
	}
	return s, sc.Err()
}

// Add returns element-wise sum of two Stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		NumFiles:             s.NumFiles + o.NumFiles,
		RegFiles:             s.RegFiles + o.RegFiles,
		DirFiles:             s.DirFiles + o.DirFiles,
		LinkFiles:            s.LinkFiles + o.LinkFiles,
		CreatedFiles:         s.CreatedFiles + o.CreatedFiles,
		DeletedFiles:         s.DeletedFiles + o.DeletedFiles,
		RegTransferred:       s.RegTransferred + o.RegTransferred,
		TotalFileSize:        s.TotalFileSize + o.TotalFileSize,
		TotalTransferredSize: s.TotalTransferredSize + o.TotalTransferredSize,
		BytesSent:            s.BytesSent + o.BytesSent,
		BytesReceived:        s.BytesReceived + o.BytesReceived,
	}
}

var reCategory = regexp.MustCompile(`([a-z][a-z ]*):\s*([\d,]+)`)

// categories walks a breakdown like "reg: 1,216, dir: 2, link: 1".
func categories(s string, fn func(key string, val int64)) {
	for _, m := range reCategory.FindAllStringSubmatch(s, -1) {
		fn(strings.TrimSpace(m[1]), toInt(m[2]))
	}
}

func toInt(s string) int64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	v, _ := strconv.ParseInt(digits, 10, 64)
	return v
}

// toBytes converts size strings like "1234", "5,120", "2.3K" to bytes.
func toBytes(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.IndexFunc(s, unicode.IsLetter) < 0 {
		return toInt(s)
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0
	}
	return int64(n)
}
