package ddlgrator

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Scaffold writes an empty TOML migration document into cfg.Dir and returns
// its path. The new migration depends on the current head, or is initial if
// the directory holds no migrations.
//
// mode "int" (the default) numbers the file one past the highest numeric
// prefix in the directory, zero padded to four digits; "timestamp" uses the
// current Unix time. The description is kebab-cased into the file name.
func Scaffold(cfg MigrationsConfig, description, mode string) (string, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migration directory: %w", err)
	}
	migrations, err := Load(cfg.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to scan migration files: %w", err)
	}

	m := Migration{Operations: []Operation{}}
	if len(migrations) == 0 {
		m.Initial = true
	} else {
		ordered, err := Resolve(migrations)
		if err != nil {
			return "", fmt.Errorf("cannot determine the head migration: %w", err)
		}
		m.Dependency = ordered[len(ordered)-1].ID
	}
	if m.Hash, err = m.Fingerprint(); err != nil {
		return "", err
	}

	var number string
	if strings.ToLower(mode) == "timestamp" {
		number = strconv.FormatInt(time.Now().Unix(), 10)
	} else {
		max := 0
		for _, mig := range migrations {
			if n, ok := leadingNumber(mig.ID); ok && n > max {
				max = n
			}
		}
		number = fmt.Sprintf("%04d", max+1)
	}
	name := number
	if desc := kebabCase(description); desc != "" {
		name += "_" + desc
	}
	path := filepath.Join(cfg.Dir, name+".toml")

	doc, err := encodeMigration(m)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	buf.WriteString("# Add operations as [[Migration.Operations]] tables.\n")
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return "", err
	}
	content := buf.String()
	if cfg.Newline != "" {
		if content, err = convertLineEnding(content, cfg.Newline); err != nil {
			return "", err
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("migration file %s already exists", path)
		}
		return "", fmt.Errorf("failed to create migration file %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write migration file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

var leadingDigits = regexp.MustCompile(`^[0-9]+`)

func leadingNumber(id string) (int, bool) {
	digits := leadingDigits.FindString(id)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	return n, err == nil
}

// kebabCase converts a string to kebab-case.
func kebabCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	re := regexp.MustCompile("[^a-z0-9]+")
	s = re.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// convertLineEnding converts all newline variations in content to the target style.
func convertLineEnding(content, lineEnding string) (string, error) {
	var target string
	switch strings.ToUpper(lineEnding) {
	case "LF":
		target = "\n"
	case "CR":
		target = "\r"
	case "CRLF":
		target = "\r\n"
	default:
		return "", fmt.Errorf("newline must be one of: LF, CR, CRLF")
	}
	re := regexp.MustCompile(`\r\n|\r|\n`)
	return re.ReplaceAllString(content, target), nil
}
