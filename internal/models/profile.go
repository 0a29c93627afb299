package models

import "strings"

// CandidateProfile is the structured payload the extraction model must
// produce. Absent free-text fields are null, absent list fields are empty
// arrays; a key is never omitted entirely.
type CandidateProfile struct {
	PersonalInformation PersonalInformation `json:"personal_information"`
	JobObjective        *string             `json:"job_objective"`
	Education           []Education         `json:"education"`
	WorkExperience      []WorkExperience    `json:"work_experience"`
	Skills              SkillSet            `json:"skills"`
	Certifications      []string            `json:"certifications"`
	Projects            []Project           `json:"projects"`
	Languages           []string            `json:"languages"`
	Awards              []string            `json:"awards"`
	Interests           []string            `json:"interests"`
	YearsOfExperience   *float64            `json:"years_of_experience"`
	Technologies        []string            `json:"technologies"`
	CareerPath          *string             `json:"career_path"`
}

type PersonalInformation struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Location *string `json:"location"`
	Summary  *string `json:"summary"`
}

type Education struct {
	Institution    *string `json:"institution"`
	Degree         *string `json:"degree"`
	FieldOfStudy   *string `json:"field_of_study"`
	GraduationYear *string `json:"graduation_year"`
}

type WorkExperience struct {
	Company      *string  `json:"company"`
	Title        *string  `json:"title"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	Description  *string  `json:"description"`
	Achievements []string `json:"achievements"`
}

type SkillSet struct {
	Technical []string `json:"technical"`
	Soft      []string `json:"soft"`
}

type Project struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Technologies []string `json:"technologies"`
}

// SearchableText flattens every textual field of the profile into a single
// lower-cased string used for downstream lookup and search indexing.
func (p *CandidateProfile) SearchableText() string {
	var parts []string

	add := func(s *string) {
		if s != nil && strings.TrimSpace(*s) != "" {
			parts = append(parts, strings.TrimSpace(*s))
		}
	}
	addAll := func(list []string) {
		for _, s := range list {
			if strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
	}

	add(p.PersonalInformation.Name)
	add(p.PersonalInformation.Email)
	add(p.PersonalInformation.Phone)
	add(p.PersonalInformation.Location)
	add(p.PersonalInformation.Summary)
	add(p.JobObjective)

	for _, e := range p.Education {
		add(e.Institution)
		add(e.Degree)
		add(e.FieldOfStudy)
		add(e.GraduationYear)
	}

	for _, w := range p.WorkExperience {
		add(w.Company)
		add(w.Title)
		add(w.StartDate)
		add(w.EndDate)
		add(w.Description)
		addAll(w.Achievements)
	}

	addAll(p.Skills.Technical)
	addAll(p.Skills.Soft)
	addAll(p.Certifications)

	for _, pr := range p.Projects {
		add(pr.Name)
		add(pr.Description)
		addAll(pr.Technologies)
	}

	addAll(p.Languages)
	addAll(p.Awards)
	addAll(p.Interests)
	addAll(p.Technologies)
	add(p.CareerPath)

	return strings.ToLower(strings.Join(parts, " "))
}

// NormalizeEmpty replaces nil list fields with empty slices so the persisted
// payload keeps the null/empty-array contract regardless of what the model
// omitted inside nested objects.
func (p *CandidateProfile) NormalizeEmpty() {
	if p.Education == nil {
		p.Education = []Education{}
	}
	if p.WorkExperience == nil {
		p.WorkExperience = []WorkExperience{}
	}
	for i := range p.WorkExperience {
		if p.WorkExperience[i].Achievements == nil {
			p.WorkExperience[i].Achievements = []string{}
		}
	}
	if p.Skills.Technical == nil {
		p.Skills.Technical = []string{}
	}
	if p.Skills.Soft == nil {
		p.Skills.Soft = []string{}
	}
	if p.Certifications == nil {
		p.Certifications = []string{}
	}
	if p.Projects == nil {
		p.Projects = []Project{}
	}
	for i := range p.Projects {
		if p.Projects[i].Technologies == nil {
			p.Projects[i].Technologies = []string{}
		}
	}
	if p.Languages == nil {
		p.Languages = []string{}
	}
	if p.Awards == nil {
		p.Awards = []string{}
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
}
