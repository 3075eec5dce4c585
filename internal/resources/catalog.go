// Package resources serves the static educational catalog and the
// specialist directory. Content is fixed at build time and read-only; the
// package only offers lookup and filtering over it.
package resources

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Section is one titled block of a resource article.
type Section struct {
	Heading    string   `json:"heading"`
	Paragraphs []string `json:"paragraphs,omitempty"`
	Bullets    []string `json:"bullets,omitempty"`
}

// Resource is one educational article.
type Resource struct {
	ID       int       `json:"id"`
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Summary  string    `json:"summary"`
	Sections []Section `json:"sections"`
}

// Specialist is one directory entry.
type Specialist struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Specialty    string   `json:"specialty"`
	Location     string   `json:"location"`
	Distance     string   `json:"distance"`
	Rating       float64  `json:"rating"`
	Reviews      int      `json:"reviews"`
	Availability string   `json:"availability"`
	Insurance    []string `json:"insurance"`
}

// Specialties lists the filterable specialty values.
var Specialties = []string{
	"Developmental Pediatrician",
	"Child Psychologist",
	"Speech-Language Pathologist",
	"Occupational Therapist",
	"Behavioral Therapist",
	"Neurologist",
}

var specialists = []Specialist{
	{
		ID:           1,
		Name:         "Dr. Sarah Johnson",
		Specialty:    "Developmental Pediatrician",
		Location:     "Downtown Medical Center",
		Distance:     "2.3 miles",
		Rating:       4.9,
		Reviews:      127,
		Availability: "Next available: Tomorrow",
		Insurance:    []string{"Blue Cross", "United Healthcare", "Aetna"},
	},
	{
		ID:           2,
		Name:         "Dr. Michael Chen",
		Specialty:    "Child Psychologist",
		Location:     "Children's Development Clinic",
		Distance:     "3.1 miles",
		Rating:       4.8,
		Reviews:      89,
		Availability: "Next available: Friday",
		Insurance:    []string{"Cigna", "Humana", "Medicare"},
	},
	{
		ID:           3,
		Name:         "Lisa Rodriguez, SLP",
		Specialty:    "Speech-Language Pathologist",
		Location:     "Speech & Language Center",
		Distance:     "1.8 miles",
		Rating:       4.9,
		Reviews:      156,
		Availability: "Next available: Today",
		Insurance:    []string{"Blue Cross", "United Healthcare", "Aetna", "Cigna"},
	},
}

var catalog = []Resource{
	{
		ID:       1,
		Slug:     "understanding-asd-screening",
		Title:    "Understanding ASD Screening",
		Category: "screening basics",
		Summary:  "What ASD screening is, how it works, and how to read the risk bands.",
		Sections: []Section{
			{
				Heading: "What is ASD Screening?",
				Paragraphs: []string{
					"Autism Spectrum Disorder (ASD) screening is a process designed to identify children who may benefit from a comprehensive evaluation for developmental concerns. Early screening is crucial because it allows for timely intervention and support.",
				},
			},
			{
				Heading: "How Does the Screening Work?",
				Paragraphs: []string{
					"Our screening uses evidence-based questionnaires and observational tools that assess various developmental domains including:",
				},
				Bullets: []string{
					"Social communication skills",
					"Behavioral patterns",
					"Developmental milestones",
					"Language development",
				},
			},
			{
				Heading: "Understanding Your Results",
				Paragraphs: []string{
					"The screening provides a risk assessment categorized as:",
				},
				Bullets: []string{
					"Low Risk: Typical development patterns observed",
					"Medium Risk: Some developmental differences noted, follow-up recommended",
					"High Risk: Significant developmental concerns identified, immediate evaluation advised",
				},
			},
		},
	},
	{
		ID:       2,
		Slug:     "developmental-milestones",
		Title:    "Developmental Milestones",
		Category: "child development",
		Summary:  "Key growth indicators by age and what to do if concerns arise.",
		Sections: []Section{
			{
				Heading: "Why Developmental Milestones Matter",
				Paragraphs: []string{
					"Developmental milestones are key indicators of your child's growth and development. Tracking these milestones helps identify potential developmental delays early.",
				},
			},
			{
				Heading: "12-18 Months",
				Bullets: []string{
					"First words (mama, dada)",
					"Points to objects of interest",
					"Follows simple instructions",
					"Shows affection to familiar people",
				},
			},
			{
				Heading: "18-24 Months",
				Bullets: []string{
					"Uses 10-20 words vocabulary",
					"Points to body parts when asked",
					"Begins to play pretend",
					"Follows two-step instructions",
				},
			},
			{
				Heading: "What to Do If Concerns Arise",
				Paragraphs: []string{
					"If you notice your child is not meeting expected milestones, discuss your concerns with your pediatrician. Early intervention can make a significant difference in developmental outcomes.",
				},
			},
		},
	},
	{
		ID:       3,
		Slug:     "find-a-specialist",
		Title:    "Find a Specialist",
		Category: "professional support",
		Summary:  "The professionals who can support your child's development and how to reach them.",
		Sections: []Section{
			{
				Heading: "Types of Specialists",
				Paragraphs: []string{
					"Different professionals can help support your child's development:",
					"Developmental Pediatrician: specializes in child development and can provide comprehensive evaluations and guidance.",
					"Child Psychologist: experts in child behavior and development who can assess developmental concerns.",
					"Speech-Language Pathologist: specialists who work on communication skills and language development.",
					"Occupational Therapist: professionals who help with sensory processing and daily living skills.",
				},
			},
			{
				Heading: "How to Find Help",
				Paragraphs: []string{
					"Several resources are available to help you find qualified specialists:",
				},
				Bullets: []string{
					"Ask your pediatrician for referrals",
					"Contact your local early intervention program",
					"Use professional directories and databases",
					"Check with your insurance provider",
				},
			},
		},
	},
}

var titleCaser = cases.Title(language.English)

// All returns the resource catalog with display-cased categories.
func All() []Resource {
	out := make([]Resource, len(catalog))
	copy(out, catalog)
	for i := range out {
		out[i].Category = titleCaser.String(out[i].Category)
	}
	return out
}

// ByID looks a resource up by numeric id.
func ByID(id int) (Resource, bool) {
	for _, r := range All() {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// BySlug looks a resource up by slug.
func BySlug(slug string) (Resource, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, r := range All() {
		if r.Slug == slug {
			return r, true
		}
	}
	return Resource{}, false
}

// SpecialistFilter narrows the directory listing. Empty fields match
// everything; both filters compare case-insensitively, location as a
// substring.
type SpecialistFilter struct {
	Specialty string
	Location  string
}

// FindSpecialists returns the directory entries matching f.
func FindSpecialists(f SpecialistFilter) []Specialist {
	specialty := strings.ToLower(strings.TrimSpace(f.Specialty))
	location := strings.ToLower(strings.TrimSpace(f.Location))

	out := make([]Specialist, 0, len(specialists))
	for _, s := range specialists {
		if specialty != "" && strings.ToLower(s.Specialty) != specialty {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(s.Location), location) {
			continue
		}
		out = append(out, s)
	}
	return out
}
