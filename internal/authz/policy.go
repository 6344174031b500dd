// Package authz implémente la politique d'autorisation du coffre.
// Fonction pure, sans effet de bord: chaque opération du service la consulte
// avant de toucher le stockage ou le journal d'audit.
package authz

// Role est le rôle opaque résolu en amont (source d'identité externe)
type Role string

// Rôles connus de la plateforme
const (
	RoleAdmin  Role = "admin"
	RoleGestor Role = "gestor"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Action est une action soumise à autorisation
type Action string

// Actions du coffre
const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionReveal Action = "reveal"
	ActionDelete Action = "delete"
)

// level est le niveau de capacité d'un rôle. L'ordre total garantit
// structurellement les invariants de sous-ensemble: reveal et delete exigent
// au moins le niveau d'édition, édition exige au moins le niveau de lecture.
// Un rôle ne peut donc jamais éditer sans voir, ni révéler sans voir.
type level int

const (
	levelNone level = iota
	levelViewer
	levelEditor
	levelManager
)

// roleLevels est la table statique rôle → niveau.
// Tout rôle inconnu reste à levelNone (aucun accès).
var roleLevels = map[Role]level{
	RoleAdmin:  levelManager,
	RoleGestor: levelManager,
	RoleEditor: levelEditor,
	RoleViewer: levelViewer,
}

// actionFloors est le niveau minimal exigé par action.
// view est dérivé: toute action plus forte l'implique par l'ordre des niveaux.
var actionFloors = map[Action]level{
	ActionView:   levelViewer,
	ActionEdit:   levelEditor,
	ActionReveal: levelEditor,
	ActionDelete: levelManager,
}

// Authorize indique si le rôle peut effectuer l'action.
// Déterministe, sans effet de bord, testable sur la matrice complète.
func Authorize(role Role, action Action) bool {
	floor, ok := actionFloors[action]
	if !ok {
		return false
	}
	return roleLevels[role] >= floor
}

// Roles retourne l'ensemble des rôles connus, pour les tests exhaustifs
// et la validation d'entrée.
func Roles() []Role {
	return []Role{RoleAdmin, RoleGestor, RoleEditor, RoleViewer}
}

// Actions retourne l'ensemble des actions soumises à autorisation
func Actions() []Action {
	return []Action{ActionView, ActionEdit, ActionReveal, ActionDelete}
}
