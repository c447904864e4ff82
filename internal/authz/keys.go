package authz

// Capability keys follow the {action}_{module} convention. The action is the
// prefix up to the first underscore; the remainder names the module.

// Project capabilities.
const (
	CapViewProject    CapabilityKey = "view_project"
	CapCreateProject  CapabilityKey = "create_project"
	CapEditProject    CapabilityKey = "edit_project"
	CapDeleteProject  CapabilityKey = "delete_project"
	CapApproveProject CapabilityKey = "approve_project"
	CapExportProject  CapabilityKey = "export_project"
)

// Milestone capabilities.
const (
	CapViewMilestone   CapabilityKey = "view_milestone"
	CapCreateMilestone CapabilityKey = "create_milestone"
	CapEditMilestone   CapabilityKey = "edit_milestone"
	CapDeleteMilestone CapabilityKey = "delete_milestone"
)

// Budget capabilities.
const (
	CapViewBudget    CapabilityKey = "view_budget"
	CapCreateBudget  CapabilityKey = "create_budget"
	CapEditBudget    CapabilityKey = "edit_budget"
	CapApproveBudget CapabilityKey = "approve_budget"
)

// Submission capabilities.
const (
	CapViewSubmission    CapabilityKey = "view_submission"
	CapCreateSubmission  CapabilityKey = "create_submission"
	CapEditSubmission    CapabilityKey = "edit_submission"
	CapApproveSubmission CapabilityKey = "approve_submission"
	CapRejectSubmission  CapabilityKey = "reject_submission"
)

// User management capabilities.
const (
	CapViewUser   CapabilityKey = "view_user"
	CapCreateUser CapabilityKey = "create_user"
	CapEditUser   CapabilityKey = "edit_user"
	CapDeleteUser CapabilityKey = "delete_user"
)

// Contractor registry capabilities.
const (
	CapViewContractor   CapabilityKey = "view_contractor"
	CapCreateContractor CapabilityKey = "create_contractor"
	CapEditContractor   CapabilityKey = "edit_contractor"
)

// Role and policy administration capabilities.
const (
	CapViewRole CapabilityKey = "view_role"
	CapEditRole CapabilityKey = "edit_role"
)

// MDA (ministry/department/agency) capabilities.
const (
	CapViewMDA   CapabilityKey = "view_mda"
	CapCreateMDA CapabilityKey = "create_mda"
	CapEditMDA   CapabilityKey = "edit_mda"
)

// Reporting capabilities.
const (
	CapViewReport   CapabilityKey = "view_report"
	CapExportReport CapabilityKey = "export_report"
)

// Audit trail capabilities. The module name carries an underscore, which the
// split convention supports: action is everything before the first one.
const (
	CapViewAuditLog   CapabilityKey = "view_audit_log"
	CapExportAuditLog CapabilityKey = "export_audit_log"
)

// AllCapabilityKeys lists every capability the platform defines. The registry
// is built from this list at startup; keys not present here are rejected by
// every policy write.
func AllCapabilityKeys() []CapabilityKey {
	return []CapabilityKey{
		CapViewProject,
		CapCreateProject,
		CapEditProject,
		CapDeleteProject,
		CapApproveProject,
		CapExportProject,

		CapViewMilestone,
		CapCreateMilestone,
		CapEditMilestone,
		CapDeleteMilestone,

		CapViewBudget,
		CapCreateBudget,
		CapEditBudget,
		CapApproveBudget,

		CapViewSubmission,
		CapCreateSubmission,
		CapEditSubmission,
		CapApproveSubmission,
		CapRejectSubmission,

		CapViewUser,
		CapCreateUser,
		CapEditUser,
		CapDeleteUser,

		CapViewContractor,
		CapCreateContractor,
		CapEditContractor,

		CapViewRole,
		CapEditRole,

		CapViewMDA,
		CapCreateMDA,
		CapEditMDA,

		CapViewReport,
		CapExportReport,

		CapViewAuditLog,
		CapExportAuditLog,
	}
}
