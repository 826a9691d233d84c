package portal

import (
	"strconv"
	"strings"

	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
)

// Field is one labelled value of the profile page.
type Field struct {
	Name  string
	Label string
	Value string
}

// ProfileFields lists the common fields followed by the ones specific to the
// profile's role.
func ProfileFields(p profile.Profile) []Field {
	fields := []Field{
		{Name: "name", Label: "Nome", Value: p.Name},
		{Name: "email", Label: "E-mail", Value: p.Email},
		{Name: "role", Label: "Perfil", Value: rbac.Label(p.Role)},
	}
	switch a := p.Attributes.(type) {
	case profile.StudentAttributes:
		fields = append(fields,
			Field{Name: "age", Label: "Idade", Value: intOrDash(a.Age)},
			Field{Name: "education", Label: "Formação", Value: orDash(a.Education)},
			Field{Name: "appliedJobs", Label: "Candidaturas", Value: strconv.Itoa(len(a.AppliedJobs))},
			Field{Name: "points", Label: "Pontos", Value: strconv.Itoa(a.Points)},
			Field{Name: "badges", Label: "Conquistas", Value: join(a.Badges)},
		)
	case profile.CompanyAttributes:
		fields = append(fields,
			Field{Name: "cnpj", Label: "CNPJ", Value: orDash(a.CNPJ)},
			Field{Name: "companySize", Label: "Porte", Value: orDash(a.CompanySize)},
			Field{Name: "activeJobs", Label: "Vagas ativas", Value: strconv.Itoa(len(a.ActiveJobs))},
		)
	case profile.CourseProviderAttributes:
		fields = append(fields,
			Field{Name: "platformName", Label: "Plataforma", Value: orDash(a.PlatformName)},
			Field{Name: "categories", Label: "Categorias", Value: join(a.Categories)},
		)
	case profile.MentorAttributes:
		fields = append(fields,
			Field{Name: "expertise", Label: "Áreas de atuação", Value: join(a.Expertise)},
			Field{Name: "bio", Label: "Biografia", Value: orDash(a.Bio)},
		)
	case profile.AdminAttributes:
		fields = append(fields, Field{Name: "scope", Label: "Escopo", Value: orDash(a.Scope)})
	}
	return fields
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func intOrDash(n int) string {
	if n <= 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func join(items []string) string {
	return orDash(strings.Join(items, ", "))
}
