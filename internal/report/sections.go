// Package report turns a filtered ledger report into printable sections of
// header and body rows. Rendering those sections is left to a Renderer.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/hearth/internal/calculator"
	"github.com/mmynk/hearth/internal/models"
	"github.com/mmynk/hearth/internal/period"
)

// Kind selects which report is exported.
type Kind string

const (
	KindDebts Kind = "debts"
	KindBills Kind = "bills"
)

// ParseKind validates a report kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDebts, KindBills:
		return k, nil
	}
	return "", fmt.Errorf("unknown report kind %q", s)
}

// Placeholder labels.
const (
	UnknownPerson    = "Unknown person"
	NoPerson         = "-"
	Uncategorized    = "Uncategorized"
	RecurrenceOneOff = "One-off"
	RecurrenceActive = "Recurring"
	RecurrenceEnded  = "Ended"
	StatusOpen       = "Open"
	StatusPaid       = "Paid"
)

// Style is a table style hint for renderers.
type Style int

const (
	Striped Style = iota
	Grid
)

// Section is one table.
type Section struct {
	Title  string
	Header []string
	Rows   [][]string
	Style  Style
}

// Document is a complete report ready to render.
type Document struct {
	Kind        Kind
	Title       string
	Subtitle    string
	Filters     string
	GeneratedAt time.Time
	FileName    string
	Sections    []Section
}

// Renderer writes a document in some output format.
type Renderer interface {
	Render(w io.Writer, doc Document) error
	ContentType() string
}

// Options tune a document.
type Options struct {
	// Title heads the document, typically the household name.
	Title string

	// Detailed adds the per-item table after the summary.
	Detailed bool
}

// Builder turns reports into documents.
type Builder struct {
	fmt *Formatter
	now func() time.Time
}

// NewBuilder creates a builder.
func NewBuilder(f *Formatter, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{fmt: f, now: now}
}

type names struct {
	people     map[string]string
	categories map[string]string
}

func namesOf(s calculator.Snapshot) names {
	n := names{people: make(map[string]string), categories: make(map[string]string)}
	for _, p := range s.People {
		n.people[p.ID] = p.Name
	}
	for _, c := range s.Categories {
		n.categories[c.ID] = c.Name
	}
	return n
}

func (n names) person(id string) string {
	if name, ok := n.people[id]; ok {
		return name
	}
	return UnknownPerson
}

func (n names) billPerson(id string) string {
	if id == "" {
		return NoPerson
	}
	return n.person(id)
}

func (n names) category(id string) string {
	if name, ok := n.categories[id]; ok {
		return name
	}
	return Uncategorized
}

// Build assembles the document of kind from a report and the snapshot it was
// computed from.
func (b *Builder) Build(kind Kind, r calculator.Report, s calculator.Snapshot, opts Options) (Document, error) {
	n := namesOf(s)
	now := b.now()

	personLabel := "All people"
	if r.Filter.PersonID != "" {
		personLabel = n.person(r.Filter.PersonID)
	}

	doc := Document{
		Kind:        kind,
		Title:       opts.Title,
		GeneratedAt: now,
		FileName:    fmt.Sprintf("report-%s-%s-%s.pdf", kind, Slug(personLabel), period.FormatDate(period.Today(now))),
	}
	yearLabel, monthLabel := "All years", "All months"
	if r.Filter.Period.Year != "" {
		yearLabel = r.Filter.Period.Year
	}
	if r.Filter.Period.Month != "" {
		monthLabel = b.fmt.Month(r.Filter.Period.Month)
	}

	switch kind {
	case KindDebts:
		doc.Subtitle = "Debts report"
		doc.Filters = fmt.Sprintf("Person: %s | Year: %s | Month: %s", personLabel, yearLabel, monthLabel)
		doc.Sections = append(doc.Sections, b.debtsByPerson(r, n))
		if opts.Detailed {
			doc.Sections = append(doc.Sections, b.debtDetails(r, n))
		}
	case KindBills:
		doc.Subtitle = "Bills report"
		doc.Filters = fmt.Sprintf("Year: %s | Month: %s", yearLabel, monthLabel)
		doc.Sections = append(doc.Sections, b.projection(r))
		if opts.Detailed {
			doc.Sections = append(doc.Sections, b.billDetails(r, n))
		}
	default:
		return Document{}, fmt.Errorf("unknown report kind %q", kind)
	}
	return doc, nil
}

func (b *Builder) debtsByPerson(r calculator.Report, n names) Section {
	sec := Section{
		Title:  "Debts by person",
		Header: []string{"Person", "Total", "Open", "Received"},
		Style:  Striped,
	}
	for _, p := range r.People {
		if p.DebtsTotal.IsZero() && p.DebtsPaid.IsZero() {
			continue
		}
		sec.Rows = append(sec.Rows, []string{
			n.person(p.PersonID),
			b.fmt.Currency(p.DebtsTotal),
			b.fmt.Currency(p.DebtsOpen),
			b.fmt.Currency(p.DebtsPaid),
		})
	}
	return sec
}

func (b *Builder) debtDetails(r calculator.Report, n names) Section {
	sec := Section{
		Title:  "Installments",
		Header: []string{"Person", "Description", "Installment", "Due", "Amount", "Paid", "Balance"},
		Style:  Grid,
	}
	for _, d := range r.Debts {
		sec.Rows = append(sec.Rows, []string{
			n.person(d.PersonID),
			d.Description,
			strconv.Itoa(d.InstallmentNumber) + "/" + strconv.Itoa(d.InstallmentsCount),
			b.fmt.Date(d.DueDate),
			b.fmt.Currency(d.Amount),
			b.fmt.Currency(d.PaidAmount),
			b.fmt.Currency(d.Remaining()),
		})
	}
	return sec
}

func (b *Builder) projection(r calculator.Report) Section {
	sec := Section{
		Title:  "Recurring projection",
		Header: []string{"Month", "Projected total"},
		Style:  Striped,
	}
	for _, pm := range r.Projection {
		sec.Rows = append(sec.Rows, []string{b.fmt.Month(pm.Month), b.fmt.Currency(pm.Total)})
	}
	return sec
}

func (b *Builder) billDetails(r calculator.Report, n names) Section {
	sec := Section{
		Title:  "Bills",
		Header: []string{"Bill", "Category", "Person", "Due", "Amount", "Recurrence", "Status"},
		Style:  Grid,
	}
	for _, bill := range r.Bills {
		sec.Rows = append(sec.Rows, []string{
			bill.Title,
			n.category(bill.CategoryID),
			n.billPerson(bill.PersonID),
			b.fmt.Date(bill.DueDate),
			b.fmt.Currency(bill.Amount),
			RecurrenceLabel(bill),
			StatusLabel(bill.Status),
		})
	}
	return sec
}

// RecurrenceLabel describes a bill's place in its series.
func RecurrenceLabel(b models.Bill) string {
	switch {
	case !b.Recurring:
		return RecurrenceOneOff
	case !b.RecurringActive:
		return RecurrenceEnded
	case !b.RecurringEndDate.IsZero():
		return "Until " + period.FormatDate(b.RecurringEndDate)
	default:
		return RecurrenceActive
	}
}

// StatusLabel names a bill status.
func StatusLabel(s models.BillStatus) string {
	if s == models.BillPaid {
		return StatusPaid
	}
	return StatusOpen
}
