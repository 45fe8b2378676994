// Package section identifies which application page is currently shown.
package section

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hazyhaar/ds160fill/dom"
)

// ErrUnknownSection is returned when neither the title nor the URL maps to
// a section.
var ErrUnknownSection = errors.New("section: could not detect form section")

// Route maps a URL fragment to a section.
type Route struct {
	Fragment string `yaml:"fragment" json:"fragment"`
	Section  string `yaml:"section" json:"section"`
}

// DefaultTitles maps page titles to section names.
var DefaultTitles = map[string]string{
	"Personal Information 1":             "personalInfo1",
	"Personal Information 2":             "personalInfo2",
	"Address and Phone Information":      "addressAndPhone",
	"Passport Information":               "passportInfo",
	"Travel Information":                 "travelInfo",
	"Travel Companions":                  "travelCompanions",
	"Previous U.S. Travel Information":   "previousTravel",
	"U.S. Contact Information":           "usContact",
	"Family Information: Relatives":      "familyRelatives",
	"Family Information: Spouse":         "familySpouse",
	"Present Work/Education/Training":    "workEducation",
	"Previous Work/Education/Training":   "previousWork",
	"Additional Work/Education/Training": "additionalWork",
	"Security and Background":            "securityInfo",
}

// DefaultRoutes maps page file names to sections, checked in order.
var DefaultRoutes = []Route{
	{"complete_personalcont.aspx", "personalInfo2"},
	{"complete_personal.aspx", "personalInfo1"},
	{"complete_contact.aspx", "addressAndPhone"},
	{"complete_passport.aspx", "passportInfo"},
	{"complete_travel.aspx", "travelInfo"},
	{"complete_travelcompanions.aspx", "travelCompanions"},
	{"complete_previousustravel.aspx", "previousTravel"},
	{"complete_uscontact.aspx", "usContact"},
	{"complete_family1.aspx", "familyRelatives"},
	{"complete_family2.aspx", "familySpouse"},
	{"complete_workeducation1.aspx", "workEducation"},
	{"complete_workeducation2.aspx", "previousWork"},
	{"complete_workeducation3.aspx", "additionalWork"},
	{"complete_securityandbackground1.aspx", "securityInfo"},
}

type titleEntry struct {
	title   string
	lower   string
	section string
}

// Detector resolves the current page to a section name.
type Detector struct {
	titles []titleEntry // longest first
	exact  map[string]string
	routes []Route
	logger *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithTitles replaces the title table.
func WithTitles(m map[string]string) Option {
	return func(d *Detector) { d.setTitles(m) }
}

// WithRoutes replaces the URL fragment table.
func WithRoutes(r []Route) Option {
	return func(d *Detector) { d.routes = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// NewDetector builds a Detector over the default tables.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{routes: DefaultRoutes, logger: slog.Default()}
	d.setTitles(DefaultTitles)
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Detector) setTitles(m map[string]string) {
	d.exact = make(map[string]string, len(m))
	d.titles = d.titles[:0]
	for t, s := range m {
		d.exact[t] = s
		d.titles = append(d.titles, titleEntry{title: t, lower: strings.ToLower(t), section: s})
	}
	sort.Slice(d.titles, func(i, j int) bool {
		if len(d.titles[i].title) != len(d.titles[j].title) {
			return len(d.titles[i].title) > len(d.titles[j].title)
		}
		return d.titles[i].title < d.titles[j].title
	})
}

// Detect returns the section for doc. Title match wins over URL match.
func (d *Detector) Detect(ctx context.Context, doc dom.Document) (string, error) {
	title, err := doc.Title(ctx)
	if err != nil {
		return "", fmt.Errorf("section: title: %w", err)
	}
	if s, ok := d.ByTitle(title); ok {
		return s, nil
	}

	u, err := doc.URL(ctx)
	if err != nil {
		return "", fmt.Errorf("section: url: %w", err)
	}
	if s, ok := d.ByURL(u); ok {
		return s, nil
	}

	d.logger.Warn("section: detection failed", "title", title, "url", u)
	return "", ErrUnknownSection
}

// ByTitle matches exactly first, then by case-insensitive containment.
func (d *Detector) ByTitle(title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", false
	}
	if s, ok := d.exact[title]; ok {
		return s, true
	}
	lower := strings.ToLower(title)
	for _, e := range d.titles {
		if strings.Contains(lower, e.lower) {
			return e.section, true
		}
	}
	return "", false
}

// ByURL matches the first route whose fragment appears in u,
// case-insensitively.
func (d *Detector) ByURL(u string) (string, bool) {
	lower := strings.ToLower(u)
	for _, r := range d.routes {
		if strings.Contains(lower, strings.ToLower(r.Fragment)) {
			return r.Section, true
		}
	}
	return "", false
}
