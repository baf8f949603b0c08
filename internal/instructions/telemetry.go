// SPDX-License-Identifier: MPL-2.0

package instructions

type (
	// Telemetry counts what one Collect pass did.
	Telemetry struct {
		// AppliedByGlob counts files added because an applyTo pattern matched.
		AppliedByGlob int
		// PulledInByReference counts files added by following references.
		PulledInByReference int
		// AgentOrRootInstructionFiles counts convention files added.
		AgentOrRootInstructionFiles int
		// ListedButNotIncluded counts listing rows for files not attached.
		ListedButNotIncluded int
		// Total is the number of discovered instruction files.
		Total int
	}

	// TelemetryReporter receives the counters once at the end of Collect.
	TelemetryReporter func(Telemetry)
)

func (t Telemetry) logArgs() []any {
	return []any{
		"applied_by_glob", t.AppliedByGlob,
		"pulled_in_by_reference", t.PulledInByReference,
		"agent_or_root", t.AgentOrRootInstructionFiles,
		"listed_not_included", t.ListedButNotIncluded,
		"total", t.Total,
	}
}
