package engine

import "context"

// AllOptions controls SyncAll. Include and Exclude of Awards apply to every
// step.
type AllOptions struct {
	Awards AwardOptions

	// UpdateBadges patches metadata of existing badges.
	UpdateBadges bool
}

// AllReport collects the reports of each SyncAll step.
type AllReport struct {
	Badges *BadgeReport `json:"badges"`
	Awards *AwardReport `json:"awards,omitempty"`
	Counts *CountReport `json:"counts,omitempty"`
}

// SyncAll runs badge, award and count synchronization in that order.
// A step that returns an error stops the pipeline; earlier reports are kept.
func (e *Engine) SyncAll(ctx context.Context, opts AllOptions) (*AllReport, error) {
	report := &AllReport{}
	include, exclude := opts.Awards.Include, opts.Awards.Exclude

	var err error
	report.Badges, err = e.SyncBadges(ctx, BadgeOptions{Include: include, Exclude: exclude, Update: opts.UpdateBadges})
	if err != nil {
		return report, err
	}

	report.Awards, err = e.SyncAwards(ctx, opts.Awards)
	if err != nil {
		return report, err
	}

	report.Counts, err = e.SyncCounts(ctx, CountOptions{Include: include, Exclude: exclude})
	if err != nil {
		return report, err
	}
	return report, nil
}
