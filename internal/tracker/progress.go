package tracker

import "github.com/budaic/i-know-where-you-live/internal/models"

// phaseBase anchors each phase on the 0-100 progress scale. A phase owns a
// 25-point band; status advances within the band.
func phaseBase(phase models.Phase) float64 {
	switch phase {
	case models.PhaseLinkedIn:
		return 0
	case models.PhaseGitHub:
		return 25
	case models.PhaseWebsite:
		return 50
	case models.PhaseGeneral:
		return 75
	case models.PhaseComplete:
		return 100
	default:
		return 0
	}
}

func statusWeight(status models.Status) float64 {
	switch status {
	case models.StatusSearching:
		return 0.3
	case models.StatusValidating:
		return 0.6
	case models.StatusCompleted:
		return 1
	default:
		return 0
	}
}

// progressFor computes the overall progress for a phase/status pair.
// Completed general phase lands exactly on 100.
func progressFor(phase models.Phase, status models.Status) float64 {
	if phase == models.PhaseComplete {
		return 100
	}
	p := phaseBase(phase) + 25*statusWeight(status)
	if p > 100 {
		p = 100
	}
	return p
}
