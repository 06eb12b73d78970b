package application

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/go-playground/validator/v10"
)

const frontMatterDelimiter = "---"

var (
	frontMatterLineRegex = regexp.MustCompile(`^([^:]+):(.*)$`)
	validate             = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseISOTime(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("poststatus", func(fl validator.FieldLevel) bool {
		return domain.PostStatus(fl.Field().String()).Valid()
	})
	return v
}

// FrontMatterAttributes are the validated metadata of a post, defaults applied.
type FrontMatterAttributes struct {
	Title       string
	CreatedAt   string
	Tags        []string
	Status      domain.PostStatus
	Description *string
}

// FrontMatter is the result of parsing the metadata block at the top of a post.
// ContentStart is the byte offset of the body, just past the closing delimiter line.
type FrontMatter struct {
	Attributes   FrontMatterAttributes
	ContentStart int
}

// frontMatterSchema mirrors the accepted keys. Pointers distinguish a missing key
// from an empty value. Unknown keys, including a legacy "slug", are ignored.
type frontMatterSchema struct {
	Title       *string  `validate:"required"`
	CreatedAt   *string  `validate:"required,isodate"`
	Tags        []string
	Status      *string `validate:"omitnil,poststatus"`
	Description *string
}

// ParseFrontMatter parses the `---` delimited block at the top of raw. Each
// non-blank line in the block is `key: <JSON literal>`.
// All failures match domain.ErrMalformedFrontMatter.
func ParseFrontMatter(raw string) (*FrontMatter, error) {
	block, contentStart, ok := findFrontMatterBlock(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no front matter block found", domain.ErrMalformedFrontMatter)
	}

	fields := make(map[string]json.RawMessage)
	for i, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		matches := frontMatterLineRegex.FindStringSubmatch(line)
		if matches == nil {
			return nil, fmt.Errorf("%w: line %d: %q is not a key: value pair", domain.ErrMalformedFrontMatter, i+1, line)
		}

		key := strings.TrimSpace(matches[1])
		value := strings.TrimSpace(matches[2])
		if key == "" || value == "" || !json.Valid([]byte(value)) {
			return nil, fmt.Errorf("%w: line %d: %q does not hold a JSON value", domain.ErrMalformedFrontMatter, i+1, line)
		}
		fields[key] = json.RawMessage(value)
	}

	attrs, err := decodeFrontMatter(fields)
	if err != nil {
		return nil, err
	}

	return &FrontMatter{
		Attributes:   attrs,
		ContentStart: contentStart,
	}, nil
}

func decodeFrontMatter(fields map[string]json.RawMessage) (FrontMatterAttributes, error) {
	// keys are matched exactly; json.Unmarshal into a struct would fold case
	var schema frontMatterSchema
	targets := map[string]any{
		"title":       &schema.Title,
		"createdAt":   &schema.CreatedAt,
		"tags":        &schema.Tags,
		"status":      &schema.Status,
		"description": &schema.Description,
	}
	for key, target := range targets {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return FrontMatterAttributes{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedFrontMatter, key, err)
		}
	}

	if err := validate.Struct(&schema); err != nil {
		return FrontMatterAttributes{}, fmt.Errorf("%w: %v", domain.ErrMalformedFrontMatter, err)
	}

	attrs := FrontMatterAttributes{
		Title:       *schema.Title,
		CreatedAt:   *schema.CreatedAt,
		Tags:        schema.Tags,
		Status:      domain.StatusPublished,
		Description: schema.Description,
	}
	if attrs.Tags == nil {
		attrs.Tags = []string{}
	}
	if schema.Status != nil {
		attrs.Status = domain.PostStatus(*schema.Status)
	}

	return attrs, nil
}

// findFrontMatterBlock returns the text between an opening delimiter on the first
// line and the next delimiter line, and the offset just past the closing line.
func findFrontMatterBlock(raw string) (string, int, bool) {
	firstEnd := strings.IndexByte(raw, '\n')
	if firstEnd < 0 || strings.TrimSuffix(raw[:firstEnd], "\r") != frontMatterDelimiter {
		return "", 0, false
	}

	blockStart := firstEnd + 1
	for lineStart := blockStart; lineStart < len(raw); {
		lineEnd := strings.IndexByte(raw[lineStart:], '\n')
		next := len(raw)
		if lineEnd >= 0 {
			lineEnd += lineStart
			next = lineEnd + 1
		} else {
			lineEnd = len(raw)
		}

		if strings.TrimSuffix(raw[lineStart:lineEnd], "\r") == frontMatterDelimiter {
			return raw[blockStart:lineStart], next, true
		}
		lineStart = next
	}

	return "", 0, false
}
