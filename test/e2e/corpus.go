// Package e2e provides end-to-end tests with a statute corpus and multiple questions.
package e2e

import (
	"fmt"
	"strings"
)

// Provision is one statute section in the E2E corpus.
type Provision struct {
	Act           string
	ActName       string
	Section       string
	EffectiveFrom string
	Text          string
}

// Outcome is the expected shape of a response.
type Outcome string

const (
	ExpectAnswer Outcome = "answer"
	ExpectRefuse Outcome = "refuse"
)

// QueryTestCase defines a question and the section(s) that must be cited.
// At least one of ExpectedSections must appear in the citations of an answer.
type QueryTestCase struct {
	Query            string
	Expect           Outcome
	ExpectedSections []string
	Description      string
}

// Corpus holds provisions and question test cases for E2E tests.
type Corpus struct {
	Provisions   []Provision
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

const (
	bnsName = "Bharatiya Nyaya Sanhita, 2023"
	bnsFrom = "2024-07-01"
	ipcName = "Indian Penal Code, 1860"
	ipcFrom = "1860-10-06"
)

var provisions = []Provision{
	{"BNS", bnsName, "2", bnsFrom, "In this Sanhita, unless the context otherwise requires, the word document denotes any matter expressed or described upon any substance by means of letters, figures or marks."},
	{"BNS", bnsName, "103", bnsFrom, "Whoever commits murder shall be punished with death or imprisonment for life, and shall also be liable to fine."},
	{"BNS", bnsName, "115", bnsFrom, "Whoever voluntarily causes hurt shall be punished with imprisonment of either description for a term which may extend to one year, or with fine which may extend to ten thousand rupees, or with both."},
	{"BNS", bnsName, "303", bnsFrom, "Whoever commits theft shall be punished with imprisonment of either description for a term which may extend to three years, or with fine, or with both, and on second conviction with rigorous imprisonment of not less than one year."},
	{"BNS", bnsName, "318", bnsFrom, "Whoever cheats and thereby dishonestly induces the person deceived to deliver any property shall be punished with imprisonment of either description for a term which may extend to seven years, and shall also be liable to fine."},
	{"BNS", bnsName, "329", bnsFrom, "Whoever commits criminal trespass shall be punished with imprisonment of either description for a term which may extend to three months, or with fine which may extend to five thousand rupees, or with both."},
	{"BNS", bnsName, "356", bnsFrom, "Whoever defames another shall be punished with simple imprisonment for a term which may extend to two years, or with fine, or with both, or with community service."},
	{"IPC", ipcName, "302", ipcFrom, "Whoever commits murder shall be punished with death, or imprisonment for life, and shall also be liable to fine."},
	{"IPC", ipcName, "379", ipcFrom, "Whoever commits theft shall be punished with imprisonment of either description for a term which may extend to three years, or with fine, or with both."},
	{"IPC", ipcName, "420", ipcFrom, "Whoever cheats and thereby dishonestly induces the person deceived to deliver any property to any person shall be punished with imprisonment for a term which may extend to seven years."},
}

// BuildCorpus returns the statute corpus and its question test cases.
func BuildCorpus() *Corpus {
	cases := buildQueryTestCases(provisions)
	return &Corpus{
		Provisions:   provisions,
		TestCases:    cases,
		TotalDocs:    len(provisions),
		TotalQueries: len(cases),
	}
}

// sameText groups sections whose wording is close enough that either may rank first.
var sameText = map[string][]string{
	"103": {"103", "302"}, "302": {"103", "302"},
	"303": {"303", "379"}, "379": {"303", "379"},
	"318": {"318", "420"}, "420": {"318", "420"},
}

func buildQueryTestCases(ps []Provision) []QueryTestCase {
	var cases []QueryTestCase
	for _, p := range ps {
		cases = append(cases, QueryTestCase{
			Query:            fmt.Sprintf("What does section %s of the %s say?", p.Section, p.Act),
			Expect:           ExpectAnswer,
			ExpectedSections: []string{p.Section},
			Description:      fmt.Sprintf("section lookup %s %s", p.Act, p.Section),
		})
		if !hasPunishment(p.Text) {
			continue
		}
		expected, ok := sameText[p.Section]
		if !ok {
			expected = []string{p.Section}
		}
		cases = append(cases, QueryTestCase{
			Query:            p.Text,
			Expect:           ExpectAnswer,
			ExpectedSections: expected,
			Description:      fmt.Sprintf("provision text %s %s", p.Act, p.Section),
		})
	}
	cases = append(cases,
		QueryTestCase{Query: "My partner is cheating on me, what should I do?", Expect: ExpectRefuse, Description: "relationship question"},
		QueryTestCase{Query: "How do I get a refund?", Expect: ExpectRefuse, Description: "no legal term"},
		QueryTestCase{Query: "Which law covers cyber stalking?", Expect: ExpectRefuse, Description: "nothing in the corpus"},
	)
	return cases
}

func hasPunishment(text string) bool {
	return strings.Contains(strings.ToLower(text), "shall be punished")
}

// ByAct groups provisions by act code.
func (c *Corpus) ByAct() map[string][]Provision {
	out := make(map[string][]Provision)
	for _, p := range c.Provisions {
		out[p.Act] = append(out[p.Act], p)
	}
	return out
}
