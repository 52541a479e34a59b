// Package e2e provides end-to-end tests against a generated guest list.
package e2e

import (
	"fmt"
	"sort"
)

// CorpusGuest is one row of the generated guest list.
type CorpusGuest struct {
	EnglishName string
	ArabicName  string
	FamilyGroup string
	TableNumber string
}

// QueryTestCase is a query and the exact row indexes its result must contain, in order.
type QueryTestCase struct {
	Query        string
	ExpectedRows []int
	Description  string
}

// Corpus holds the guest rows and query test cases.
type Corpus struct {
	Guests        []CorpusGuest
	TestCases     []QueryTestCase
	TotalFamilies int
}

type namePair struct{ en, ar string }

var firstNames = []namePair{
	{"Sarah", "سارة"}, {"Omar", "عمر"}, {"Layla", "ليلى"}, {"Karim", "كريم"},
	{"Nour", "نور"}, {"Youssef", "يوسف"}, {"Mariam", "مريم"}, {"Khaled", "خالد"},
	{"Hana", "هناء"}, {"Tarek", "طارق"}, {"Salma", "سلمى"}, {"Ahmed", "أحمد"},
	{"Dina", "دينا"}, {"Mostafa", "مصطفى"}, {"Rania", "رانيا"}, {"Hossni", "حسني"},
}

var familyNames = []namePair{
	{"Abdelrahman", "عبد الرحمان"}, {"Hassan", "حسن"}, {"Mansour", "منصور"}, {"Farouk", "فاروق"},
	{"Saleh", "صالح"}, {"Naguib", "نجيب"}, {"Haddad", "حداد"}, {"Khalil", "خليل"},
	{"Shaker", "شاكر"}, {"Zaki", "زكي"}, {"Fahmy", "فهمي"}, {"Ibrahim", "إبراهيم"},
	{"Barakat", "بركات"}, {"Rashed", "راشد"}, {"Sabry", "صبري"}, {"Tawfik", "توفيق"},
}

var soloNames = []namePair{
	{"Mahmoud", "محمود"}, {"Soliman", "سليمان"}, {"Ezzat", "عزت"}, {"Lotfy", "لطفي"},
}

// BuildCorpus returns a guest list of one family per surname plus ungrouped guests.
// Every fifth family has a member appended at the end of the sheet, so family rows are
// not always contiguous.
func BuildCorpus() *Corpus {
	var guests []CorpusGuest
	families := make([][]int, len(familyNames))

	add := func(first, last namePair, family, table string) int {
		guests = append(guests, CorpusGuest{
			EnglishName: first.en + " " + last.en,
			ArabicName:  first.ar + " " + last.ar,
			FamilyGroup: family,
			TableNumber: table,
		})
		return len(guests) - 1
	}

	for i, last := range familyNames {
		label := fmt.Sprintf("%s Family", last.en)
		table := fmt.Sprintf("%d", i%8+1)
		for k := 0; k < 1+i%4; k++ {
			families[i] = append(families[i], add(firstNames[(i*3+k)%len(firstNames)], last, label, table))
		}
	}

	solo := make([]int, 0, 8)
	for i := 0; i < 8; i++ {
		solo = append(solo, add(firstNames[(i*5)%len(firstNames)], soloNames[i%len(soloNames)], "", ""))
	}

	for i, last := range familyNames {
		if i%5 == 0 {
			label := fmt.Sprintf("%s Family", last.en)
			families[i] = append(families[i], add(firstNames[(i*3+4)%len(firstNames)], last, label, fmt.Sprintf("%d", i%8+1)))
		}
	}

	var cases []QueryTestCase
	for i, rows := range families {
		expected := sortedCopy(rows)
		first := guests[rows[0]]
		last := guests[rows[len(rows)-1]]
		cases = append(cases,
			QueryTestCase{Query: first.EnglishName, ExpectedRows: expected, Description: fmt.Sprintf("family %d english", i)},
			QueryTestCase{Query: last.ArabicName, ExpectedRows: expected, Description: fmt.Sprintf("family %d arabic", i)},
		)
	}
	for i, row := range solo {
		cases = append(cases, QueryTestCase{
			Query:        guests[row].EnglishName,
			ExpectedRows: []int{row},
			Description:  fmt.Sprintf("ungrouped %d", i),
		})
	}
	cases = append(cases, QueryTestCase{
		Query:        "Nobody Here",
		ExpectedRows: []int{},
		Description:  "no match",
	})

	return &Corpus{Guests: guests, TestCases: cases, TotalFamilies: len(families)}
}

// Records returns the sheet as rows, header first.
func (c *Corpus) Records() [][]string {
	records := [][]string{{"English Name", "Family Group", "Arabic Name", "Table Number"}}
	for _, g := range c.Guests {
		records = append(records, []string{g.EnglishName, g.FamilyGroup, g.ArabicName, g.TableNumber})
	}
	return records
}

func sortedCopy(rows []int) []int {
	out := append([]int(nil), rows...)
	sort.Ints(out)
	return out
}
