package pipeline

import (
	"context"

	"github.com/conneroisu/assetsmith/internal/logging"
	"github.com/conneroisu/assetsmith/internal/pagespeed"
	"github.com/conneroisu/assetsmith/internal/vendor"
)

// modernizr downloads the feature detection build into the vendor scripts.
func (p *Pipeline) modernizr(ctx context.Context) error {
	m := p.cfg.Update.Modernizr
	url := vendor.ModernizrURL(p.cfg.Update.ModernizrURL, m.Features, m.Options)
	_, err := p.fetcher.Fetch(ctx, url, p.cfg.Paths.DevPath("js", "vendor", "modernizr.min.js"))
	return err
}

// jquery installs jQuery from the local package when present, otherwise from
// the CDN.
func (p *Pipeline) jquery(ctx context.Context) error {
	local, err := p.fetcher.Install(ctx, p.cfg.Update.JQuerySource, p.cfg.Update.JQueryURL,
		p.cfg.Paths.DevPath("js", "vendor", "jquery.min.js"))
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Debug(ctx, "jQuery installed", "local", local)
	return nil
}

func (p *Pipeline) pagespeed(ctx context.Context) error {
	report, err := p.speed.Run(ctx, pagespeed.Request{
		URL:      p.cfg.PageSpeed.URL,
		Strategy: p.cfg.PageSpeed.Strategy,
		Key:      p.cfg.PageSpeed.Key,
	})
	if err != nil {
		return err
	}
	return pagespeed.Render(p.out, report)
}
