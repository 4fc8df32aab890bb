package game

import (
	"strings"

	"campaign_feed/internal/config"
	"campaign_feed/internal/domain"
	"campaign_feed/internal/roster"
	"campaign_feed/internal/scheduler"
	"campaign_feed/internal/selection"
)

const (
	defaultRivalName   = "Senator Patricia Morgan"
	defaultRivalHandle = "@SenMorgan"
	defaultRivalAvatar = "patricia-morgan"
)

// PlayerFrom builds the player record from settings.
func PlayerFrom(pc config.PlayerConfig) domain.Player {
	return domain.Player{
		CandidateName:     strings.TrimSpace(pc.CandidateName),
		Party:             strings.TrimSpace(pc.Party),
		PoliticalPosition: domain.ClampOpinion(pc.PoliticalPosition),
		PriorityIssues:    domain.NormalizeIssues(pc.PriorityIssues),
	}
}

// RivalFor derives the opponent. Party and position default to the other
// side of the player: a Democrat faces a Republican at +45, anyone else a
// Democrat at -45.
func RivalFor(player domain.Player, rc config.RivalConfig) domain.Rival {
	rival := domain.Rival{
		Name:              defaultRivalName,
		Handle:            defaultRivalHandle,
		Party:             "Democrat",
		PoliticalPosition: -45,
		AvatarSeed:        defaultRivalAvatar,
	}
	if strings.EqualFold(player.Party, "Democrat") {
		rival.Party = "Republican"
		rival.PoliticalPosition = 45
	}
	if v := strings.TrimSpace(rc.Name); v != "" {
		rival.Name = v
	}
	if v := strings.TrimSpace(rc.Handle); v != "" {
		if !strings.HasPrefix(v, "@") {
			v = "@" + v
		}
		rival.Handle = v
	}
	if v := strings.TrimSpace(rc.Party); v != "" {
		rival.Party = v
	}
	if rc.PoliticalPosition != nil {
		rival.PoliticalPosition = domain.ClampOpinion(*rc.PoliticalPosition)
	}
	if v := strings.TrimSpace(rc.AvatarSeed); v != "" {
		rival.AvatarSeed = v
	}
	return rival
}

// ConfigFrom copies simulation settings into an engine config. The engine
// keeps its copy; edits to sim afterwards take effect on the next engine.
func ConfigFrom(sim config.SimulationConfig) Config {
	rosterPath := sim.RosterPath
	return Config{
		Responders: selection.Config{
			MinResponders: sim.MinResponders,
			MaxResponders: sim.MaxResponders,
		},
		Schedule: scheduler.Config{
			News:         scheduler.Interval{Min: sim.NewsMinInterval, Max: sim.NewsMaxInterval},
			Rival:        scheduler.Interval{Min: sim.RivalMinInterval, Max: sim.RivalMaxInterval},
			RivalInitial: scheduler.Interval{Min: sim.RivalInitialMin, Max: sim.RivalInitialMax},
		},
		ResponseSpeed: sim.ResponseSpeedMultiplier,
		Viral:         sim.ViralMultiplier,
		Seed:          sim.Seed,
		Roster: func() ([]domain.Persona, error) {
			return roster.Load(rosterPath)
		},
	}
}
