package status

import (
	"context"
	"time"

	"blesniff/internal/db"
	"blesniff/internal/gps"
	"blesniff/internal/sniffer"
	"blesniff/internal/util"
)

type Provider struct {
	GPS     *gps.State
	Store   *db.Store
	Sniffer *sniffer.Sniffer
}

// Run prints periodic status lines to the console.
func Run(ctx context.Context, interval time.Duration, p Provider) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			printOnce(ctx, p)
		}
	}
}

func printOnce(ctx context.Context, p Provider) {
	if p.Sniffer != nil {
		st := p.Sniffer.Stats()
		util.Linef("[STATS]", util.ColorCyan, "Frames: %d, Devices: %d, Records: %d, Malformed: %d, Remote ID: %d, Drones: %d",
			st.Frames, st.Devices, st.Records, st.Malformed, st.RemoteID, st.Drones)
		if st.StoreErrs > 0 {
			util.Linef("[STATS]", util.ColorYellow, "store errors: %d (see app.log)", st.StoreErrs)
		}
	}

	if p.GPS.Enabled() {
		line := p.GPS.Status()
		if l := p.GPS.Label(); l != "" {
			line += " " + l
		}
		util.Linef("[GPS DATA]", util.ColorCyan, "%s", line)
	}

	if p.Store != nil {
		if st, err := p.Store.GetStatistics(ctx); err == nil {
			util.Linef("[DB STATS]", util.ColorGray, "Sessions: %d, Devices: %d, Named: %d, Advertisements: %d, Remote ID: %d, Drones: %d",
				st.Sessions, st.Devices, st.NamedDevices, st.Advertisements, st.RemoteIDMessages, st.Drones)
		}
	}

	if pct := util.BatteryPercent(); pct != "" {
		util.Linef("[BATTERY]", util.ColorGray, "%s", pct)
	}
}
