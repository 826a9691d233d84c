// Package portal renders the role-aware pages and the profile API.
package portal

import (
	"github.com/carreirahub/carreirahub/internal/rbac"
)

// Action is a button on a section page, shown only to roles holding
// Permission that may also open Path.
type Action struct {
	Path       string
	Label      string
	Permission rbac.Permission
}

// Section is the page served at one route-table path.
type Section struct {
	Path        string
	Title       string
	Nav         string
	Description string
	Actions     []Action
}

var sections = []Section{
	{
		Path:        "/dashboard",
		Title:       "Painel",
		Description: "Visão geral da sua conta.",
		Actions: []Action{
			{Path: "/jobs", Label: "Vagas", Permission: rbac.PermViewJobs},
			{Path: "/courses", Label: "Cursos", Permission: rbac.PermViewCourses},
			{Path: "/profile", Label: "Meu perfil", Permission: rbac.PermEditProfile},
		},
	},
	{
		Path:        "/dashboard/student",
		Title:       "Painel do estudante",
		Nav:         "Início",
		Description: "Acompanhe candidaturas, cursos e sua pontuação.",
		Actions: []Action{
			{Path: "/jobs", Label: "Buscar vagas", Permission: rbac.PermViewJobs},
			{Path: "/applications", Label: "Minhas candidaturas", Permission: rbac.PermViewApplications},
			{Path: "/courses/enrolled", Label: "Meus cursos", Permission: rbac.PermEnrollCourses},
			{Path: "/mentorship", Label: "Pedir mentoria", Permission: rbac.PermRequestMentorship},
		},
	},
	{
		Path:        "/dashboard/company",
		Title:       "Painel da empresa",
		Nav:         "Início",
		Description: "Publique vagas e avalie candidatos.",
		Actions: []Action{
			{Path: "/jobs/manage", Label: "Publicar vaga", Permission: rbac.PermManageJobs},
			{Path: "/applications/review", Label: "Avaliar candidaturas", Permission: rbac.PermReviewApplications},
			{Path: "/reports", Label: "Relatórios", Permission: rbac.PermViewReports},
		},
	},
	{
		Path:        "/dashboard/provider",
		Title:       "Painel do provedor de cursos",
		Nav:         "Início",
		Description: "Gerencie seus cursos e recebimentos.",
		Actions: []Action{
			{Path: "/courses/manage", Label: "Gerenciar cursos", Permission: rbac.PermManageCourses},
			{Path: "/payments", Label: "Recebimentos", Permission: rbac.PermManagePayments},
			{Path: "/reports", Label: "Relatórios", Permission: rbac.PermViewReports},
		},
	},
	{
		Path:        "/dashboard/mentor",
		Title:       "Painel do mentor",
		Nav:         "Início",
		Description: "Acompanhe seus mentorados.",
		Actions: []Action{
			{Path: "/mentorship", Label: "Mentorados", Permission: rbac.PermMentorStudents},
			{Path: "/jobs", Label: "Vagas abertas", Permission: rbac.PermViewJobs},
		},
	},
	{
		Path:  "/jobs",
		Title: "Vagas",
		Nav:   "Vagas",
		Actions: []Action{
			{Path: "/applications", Label: "Candidatar-se", Permission: rbac.PermApplyJobs},
			{Path: "/jobs/manage", Label: "Publicar vaga", Permission: rbac.PermManageJobs},
		},
	},
	{
		Path:  "/jobs/manage",
		Title: "Gerenciar vagas",
		Actions: []Action{
			{Path: "/applications/review", Label: "Ver candidaturas", Permission: rbac.PermReviewApplications},
		},
	},
	{
		Path:  "/applications",
		Title: "Minhas candidaturas",
		Nav:   "Candidaturas",
		Actions: []Action{
			{Path: "/jobs", Label: "Buscar mais vagas", Permission: rbac.PermViewJobs},
		},
	},
	{
		Path:  "/applications/review",
		Title: "Avaliar candidaturas",
		Nav:   "Candidaturas",
	},
	{
		Path:  "/courses",
		Title: "Cursos",
		Nav:   "Cursos",
		Actions: []Action{
			{Path: "/courses/enrolled", Label: "Meus cursos", Permission: rbac.PermEnrollCourses},
			{Path: "/courses/manage", Label: "Gerenciar cursos", Permission: rbac.PermManageCourses},
		},
	},
	{
		Path:  "/courses/manage",
		Title: "Gerenciar cursos",
	},
	{
		Path:  "/courses/enrolled",
		Title: "Meus cursos",
	},
	{
		Path:        "/payments",
		Title:       "Pagamentos",
		Nav:         "Pagamentos",
		Description: "Histórico de pagamentos e recebimentos.",
	},
	{
		Path:  "/mentorship",
		Title: "Mentoria",
		Nav:   "Mentoria",
	},
	{
		Path:  "/reports",
		Title: "Relatórios",
		Nav:   "Relatórios",
	},
	{
		Path:        "/admin",
		Title:       "Administração",
		Nav:         "Administração",
		Description: "Usuários, papéis e relatórios da plataforma.",
		Actions: []Action{
			{Path: "/admin/users", Label: "Contas", Permission: rbac.PermManageUsers},
			{Path: "/admin/audit", Label: "Trilha de auditoria", Permission: rbac.PermManageUsers},
			{Path: "/api/permissions", Label: "Papéis e permissões", Permission: rbac.PermManageUsers},
			{Path: "/reports", Label: "Relatórios", Permission: rbac.PermViewReports},
			{Path: "/payments", Label: "Pagamentos", Permission: rbac.PermManagePayments},
		},
	},
}

var sectionByPath = func() map[string]Section {
	m := make(map[string]Section, len(sections))
	for _, s := range sections {
		m[s.Path] = s
	}
	return m
}()

// Sections returns the page catalog.
func Sections() []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// VisibleActions filters the actions of s down to those role may use.
func VisibleActions(resolver *rbac.Resolver, role rbac.Role, s Section) []Action {
	var out []Action
	for _, a := range s.Actions {
		if resolver.HasPermission(role, a.Permission) && resolver.CanAccessRoute(role, a.Path) {
			out = append(out, a)
		}
	}
	return out
}
