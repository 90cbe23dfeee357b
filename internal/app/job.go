package app

import (
	"fmt"

	"tablemerge/internal/etl"
	"tablemerge/internal/profile"
	"tablemerge/internal/service"
)

// NewJob resolves req against the profile catalog and configuration.
// Precedence for write options is request, then profile, then config.
func (a *App) NewJob(req service.JobRequest) (*etl.MergeJob, error) {
	name := req.Profile
	if name == "" {
		name = a.cfg.DefaultProfile
	}
	if name == "" {
		name = string(profile.Default)
	}
	p, err := a.profiles.Lookup(name)
	if err != nil {
		return nil, err
	}

	job := &etl.MergeJob{
		ID:      req.ID,
		Profile: string(p.Name),
		Config:  p.MergeConfig(),
	}
	refs := []struct {
		role string
		ref  string
		dst  *etl.Resource
	}{
		{"primary", req.Primary, &job.Primary},
		{"secondary", req.Secondary, &job.Secondary},
		{"destination", req.Output, &job.Output},
	}
	for _, r := range refs {
		res, err := etl.ParseResource(r.ref)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.role, err)
		}
		*r.dst = res
	}

	extra := req.ExtraColumns
	if extra == "" {
		extra = string(p.ExtraColumns)
	}
	if extra == "" {
		extra = a.cfg.Writer.ExtraColumns
	}
	job.Write.ExtraColumns, err = etl.ParseExtraColumnPolicy(extra)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = a.cfg.Writer.Mode
	}
	switch etl.SyncMode(mode) {
	case etl.SyncReplace, etl.SyncAppend:
		job.Write.Mode = etl.SyncMode(mode)
	default:
		return nil, fmt.Errorf("unknown write mode %q (want replace or append)", mode)
	}
	return job, nil
}
