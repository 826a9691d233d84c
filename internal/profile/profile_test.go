package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carreirahub/carreirahub/internal/rbac"
)

func TestBuildSelectsAttributesByRole(t *testing.T) {
	p, err := Build(Data{
		ID:         "c-1",
		Name:       "Acme",
		Email:      "rh@acme.com.br",
		Attributes: json.RawMessage(`{"cnpj":"11.222.333/0001-81","companySize":"51-200"}`),
	}, rbac.RoleCompany)
	require.NoError(t, err)

	attrs, ok := p.Attributes.(CompanyAttributes)
	require.True(t, ok)
	assert.Equal(t, "11.222.333/0001-81", attrs.CNPJ)
	assert.Equal(t, rbac.RoleCompany, p.Attributes.Role())
}

func TestBuildRejectsForeignAttributes(t *testing.T) {
	_, err := Build(Data{Attributes: json.RawMessage(`{"cnpj":"x"}`)}, rbac.RoleStudent)
	assert.ErrorIs(t, err, ErrInvalidAttributes)

	_, err = Build(Data{}, "superuser")
	assert.ErrorIs(t, err, ErrUnsupportedRole)
}

func TestProfileJSONRoundTrip(t *testing.T) {
	original := Profile{
		ID:    "s-1",
		Name:  "Ana",
		Email: "ana@x.com",
		Role:  rbac.RoleStudent,
		Attributes: StudentAttributes{
			Age:         21,
			Education:   "Engenharia",
			AppliedJobs: []string{"job-7"},
			Points:      120,
			Badges:      []string{"pioneira"},
		},
	}
	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Profile
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original, decoded)
}

func TestApplyMergesOnlyPresentAttributeFields(t *testing.T) {
	current := Profile{
		ID:         "s-1",
		Name:       "Ana",
		Role:       rbac.RoleStudent,
		Attributes: StudentAttributes{Age: 21, Education: "Médio", Points: 10, Badges: []string{"a"}},
	}
	next, err := Apply(current, Patch{
		Name:       String("Ana Clara"),
		Attributes: json.RawMessage(`{"education":"Superior"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "Ana Clara", next.Name)
	attrs := next.Attributes.(StudentAttributes)
	assert.Equal(t, "Superior", attrs.Education)
	assert.Equal(t, 21, attrs.Age)
	assert.Equal(t, []string{"a"}, attrs.Badges)
	assert.Equal(t, "Médio", current.Attributes.(StudentAttributes).Education)
}

func TestApplyKeepsEarnedFields(t *testing.T) {
	student := Profile{ID: "s-1", Role: rbac.RoleStudent, Attributes: StudentAttributes{Points: 10, Badges: []string{"a"}}}
	next, err := Apply(student, Patch{Attributes: json.RawMessage(`{"age":30,"points":99999,"badges":["gold"],"appliedJobs":["j9"]}`)})
	require.NoError(t, err)
	assert.Equal(t, StudentAttributes{Age: 30, Points: 10, Badges: []string{"a"}}, next.Attributes)

	company := Profile{ID: "c-1", Role: rbac.RoleCompany, Attributes: CompanyAttributes{ActiveJobs: []string{"j1"}}}
	next, err = Apply(company, Patch{Attributes: json.RawMessage(`{"cnpj":"1","activeJobs":[]}`)})
	require.NoError(t, err)
	assert.Equal(t, CompanyAttributes{CNPJ: "1", ActiveJobs: []string{"j1"}}, next.Attributes)
}

func TestWithoutEarnedFields(t *testing.T) {
	assert.Equal(t, StudentAttributes{Age: 19}, WithoutEarnedFields(StudentAttributes{Age: 19, Points: 5, Badges: []string{"x"}, AppliedJobs: []string{"j"}}))
	assert.Equal(t, CompanyAttributes{CNPJ: "1"}, WithoutEarnedFields(CompanyAttributes{CNPJ: "1", ActiveJobs: []string{"j"}}))
	assert.Equal(t, MentorAttributes{Bio: "b"}, WithoutEarnedFields(MentorAttributes{Bio: "b"}))
}

func TestEmptyListsDecodeAsNil(t *testing.T) {
	attrs, err := DecodeAttributes(rbac.RoleStudent, json.RawMessage(`{"badges":[],"appliedJobs":[]}`))
	require.NoError(t, err)
	assert.Equal(t, StudentAttributes{}, attrs)

	attrs, err = DecodeAttributes(rbac.RoleMentor, json.RawMessage(`{"expertise":[]}`))
	require.NoError(t, err)
	assert.Nil(t, attrs.(MentorAttributes).Expertise)
}

func TestMergeRejectsTrailingData(t *testing.T) {
	for _, raw := range []string{`{"age":20} {"cnpj":"x"}`, `{"age":20} garbage`, `{"age":20}]`} {
		_, err := MergeAttributes(StudentAttributes{}, json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrInvalidAttributes, raw)
	}

	attrs, err := MergeAttributes(StudentAttributes{}, json.RawMessage("{\"age\":20}\n"))
	require.NoError(t, err)
	assert.Equal(t, 20, attrs.(StudentAttributes).Age)
}

func TestApplyIgnoresRole(t *testing.T) {
	admin := rbac.RoleAdmin
	current := Profile{ID: "s-1", Role: rbac.RoleStudent, Attributes: StudentAttributes{}}

	next, err := Apply(current, Patch{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleStudent, next.Role)
}

func TestEmptyPatch(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.True(t, Patch{Attributes: json.RawMessage(` {} `)}.IsEmpty())
	assert.False(t, Patch{Name: String("")}.IsEmpty())

	current := Profile{ID: "m-1", Role: rbac.RoleMentor, Attributes: MentorAttributes{Bio: "x"}}
	next, err := Apply(current, Patch{})
	require.NoError(t, err)
	assert.Equal(t, current, next)
}

func TestCloneDoesNotShareSlices(t *testing.T) {
	current := Profile{Role: rbac.RoleCourseProvider, Attributes: CourseProviderAttributes{Categories: []string{"dados"}}}
	cp := current.Clone()
	cp.Attributes.(CourseProviderAttributes).Categories[0] = "design"

	assert.Equal(t, "dados", current.Attributes.(CourseProviderAttributes).Categories[0])
}
