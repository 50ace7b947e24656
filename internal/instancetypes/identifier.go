package instancetypes

import (
	"regexp"
	"strings"
)

var (
	generationToken = regexp.MustCompile(`^[a-z]+[0-9]+[a-z]*$`)
	apiNamePattern  = regexp.MustCompile(`^[a-z](?:[a-z0-9]|-[a-z0-9])*\.[0-9a-z]+$`)
	nonSlug         = regexp.MustCompile(`[^a-z0-9]+`)
)

// familyNames maps the family wording used in headings to the API prefix.
// Families whose only size is implied carry it in size.
var familyNames = []struct {
	phrase string
	prefix string
	size   string
}{
	{phrase: "cluster compute", prefix: "cc2"},
	{phrase: "cluster gpu", prefix: "cg1"},
	{phrase: "high-memory", prefix: "m2"},
	{phrase: "high memory", prefix: "m2"},
	{phrase: "high-cpu", prefix: "c1"},
	{phrase: "high cpu", prefix: "c1"},
	{phrase: "high i/o", prefix: "hi1"},
	{phrase: "high io", prefix: "hi1"},
	{phrase: "high storage", prefix: "hs1"},
	{phrase: "micro", prefix: "t1", size: "micro"},
}

// sizeNames is ordered longest phrase first.
var sizeNames = []struct {
	phrase string
	size   string
}{
	{phrase: "eight extra large", size: "8xlarge"},
	{phrase: "quadruple extra large", size: "4xlarge"},
	{phrase: "double extra large", size: "2xlarge"},
	{phrase: "extra large", size: "xlarge"},
	{phrase: "large", size: "large"},
	{phrase: "medium", size: "medium"},
	{phrase: "small", size: "small"},
	{phrase: "micro", size: "micro"},
}

// identify returns the API name and display name of a block. It always
// returns a non-empty API name for a located block.
func identify(b *block) (apiName, name string) {
	name = b.heading
	if label := machineLabel(b); label != "" {
		return label, name
	}
	return deriveAPIName(name), name
}

// machineLabel looks for an explicit API name: a data-api-name attribute, a
// code element in the heading, then an "API name" row.
func machineLabel(b *block) string {
	if v, ok := b.sel.Attr("data-api-name"); ok {
		if label := cleanLabel(v); label != "" {
			return label
		}
	}
	if label := cleanLabel(headingSelection(b.sel).Find("code").First().Text()); label != "" {
		return label
	}
	if v, ok := b.row("api name", "api"); ok {
		return cleanLabel(v)
	}
	return ""
}

func cleanLabel(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	label := strings.Trim(fields[0], `"'.,;:()`)
	if !apiNamePattern.MatchString(label) {
		return ""
	}
	return label
}

// deriveAPIName maps a heading such as "Cluster Compute Eight Extra Large
// Instance" to "cc2.8xlarge". Headings the tables do not cover fall back to
// a slug of the heading.
func deriveAPIName(heading string) string {
	lower := strings.ToLower(parenthetical.ReplaceAllString(heading, " "))
	var words []string
	for _, w := range strings.Fields(lower) {
		if w == "instance" || w == "instances" {
			continue
		}
		words = append(words, w)
	}

	var prefix, size string
	rest := strings.Join(words, " ")
	if len(words) > 0 && generationToken.MatchString(words[0]) {
		prefix = words[0]
		rest = strings.Join(words[1:], " ")
	} else {
		for _, f := range familyNames {
			if strings.HasPrefix(rest, f.phrase) {
				prefix, size = f.prefix, f.size
				rest = strings.TrimSpace(strings.TrimPrefix(rest, f.phrase))
				break
			}
		}
	}

	padded := " " + rest + " "
	for _, s := range sizeNames {
		if strings.Contains(padded, " "+s.phrase+" ") {
			size = s.size
			break
		}
	}

	if prefix == "" || size == "" {
		return slug(heading)
	}
	return prefix + "." + size
}

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
