// Package gitlog reads commit history from a local repository through
// `git log --numstat` and turns it into ingestible commits.
package gitlog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/okian/connecthub/internal/domain/model"
)

// Record and field separators written by logFormat. Neither byte appears in
// commit metadata or numstat output.
const (
	recordSep = '\x1e'
	fieldSep  = "\x1f"
	headerEnd = "\x1d"
)

// logFormat emits hash, author name, author email, committer time (unix
// seconds) and the raw message, then the numstat block.
const logFormat = "%x1e%H%x1f%an%x1f%ae%x1f%ct%x1f%B%x1d"

// maxRecordBytes bounds a single commit record while scanning.
const maxRecordBytes = 16 << 20

// Errors returned by the reader.
var (
	ErrMalformed = errors.New("gitlog: malformed record")
	ErrGit       = errors.New("gitlog: git failed")
)

// Filter selects which commits are kept.
type Filter struct {
	// Prefix keeps only commits whose message starts with it, case-insensitively.
	Prefix string
	// Limit stops after this many kept commits. Zero means no limit.
	Limit int
}

func (f Filter) keep(c model.Commit) bool {
	if f.Prefix == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(c.Message), strings.ToLower(f.Prefix))
}

// Read runs git in repo and returns the commits matching f, newest first.
func Read(ctx context.Context, repo string, f Filter) ([]model.Commit, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", repo, "log", "--no-merges", "--numstat", "--format="+logFormat)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGit, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGit, err)
	}

	commits, perr := Parse(out, f)
	if perr != nil || (f.Limit > 0 && len(commits) >= f.Limit) {
		// Stop git early; its exit status no longer matters.
		cancel()
		_ = cmd.Wait()
		return commits, perr
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrGit, err, strings.TrimSpace(stderr.String()))
	}
	return commits, nil
}

// Parse decodes output produced with logFormat.
func Parse(r io.Reader, f Filter) ([]model.Commit, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	sc.Split(splitRecords)

	var commits []model.Commit
	for sc.Scan() {
		rec := sc.Text()
		if strings.TrimSpace(rec) == "" {
			continue
		}
		c, err := parseRecord(rec)
		if err != nil {
			return commits, err
		}
		if !f.keep(c) {
			continue
		}
		commits = append(commits, c)
		if f.Limit > 0 && len(commits) >= f.Limit {
			return commits, nil
		}
	}
	if err := sc.Err(); err != nil {
		return commits, fmt.Errorf("gitlog: scan: %w", err)
	}
	return commits, nil
}

func splitRecords(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := 0
	if data[0] == recordSep {
		start = 1
	}
	if i := bytes.IndexByte(data[start:], recordSep); i >= 0 {
		return start + i, data[start : start+i], nil
	}
	if atEOF {
		return len(data), data[start:], nil
	}
	return 0, nil, nil
}

func parseRecord(rec string) (model.Commit, error) {
	header, stats, ok := strings.Cut(rec, headerEnd)
	if !ok {
		return model.Commit{}, fmt.Errorf("%w: missing header terminator", ErrMalformed)
	}
	fields := strings.SplitN(header, fieldSep, 5)
	if len(fields) != 5 {
		return model.Commit{}, fmt.Errorf("%w: want 5 header fields, got %d", ErrMalformed, len(fields))
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		return model.Commit{}, fmt.Errorf("%w: timestamp %q", ErrMalformed, fields[3])
	}

	c := model.Commit{
		Hash:      strings.TrimSpace(fields[0]),
		Message:   strings.TrimSpace(fields[4]),
		Timestamp: secs * 1000,
		Contributor: model.CommitAuthor{
			Name:  fields[1],
			Email: fields[2],
		},
	}
	if c.Hash == "" {
		return model.Commit{}, fmt.Errorf("%w: empty hash", ErrMalformed)
	}

	for _, line := range strings.Split(stats, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fs, err := parseNumstat(line)
		if err != nil {
			return model.Commit{}, err
		}
		c.Files = append(c.Files, fs)
	}
	return c, nil
}

// parseNumstat decodes "added<TAB>deleted<TAB>path". Binary files report "-"
// for both counts and are recorded as zero.
func parseNumstat(line string) (model.FileStat, error) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return model.FileStat{}, fmt.Errorf("%w: numstat line %q", ErrMalformed, line)
	}
	added, err := count(parts[0])
	if err != nil {
		return model.FileStat{}, err
	}
	deleted, err := count(parts[1])
	if err != nil {
		return model.FileStat{}, err
	}
	return model.FileStat{
		FilePath:     renamedPath(parts[2]),
		LinesAdded:   added,
		LinesDeleted: deleted,
	}, nil
}

func count(s string) (int, error) {
	if s == "-" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: line count %q", ErrMalformed, s)
	}
	return n, nil
}

// renamedPath resolves numstat rename notation to the new path:
// "a/{old => new}/b" becomes "a/new/b" and "old => new" becomes "new".
func renamedPath(p string) string {
	open := strings.IndexByte(p, '{')
	closing := strings.IndexByte(p, '}')
	if open >= 0 && closing > open {
		inner := p[open+1 : closing]
		if _, to, ok := strings.Cut(inner, " => "); ok {
			joined := p[:open] + to + p[closing+1:]
			return strings.ReplaceAll(joined, "//", "/")
		}
	}
	if _, to, ok := strings.Cut(p, " => "); ok {
		return to
	}
	return p
}
