package domain

import "math"

// Wind chill applies only below windChillMaxTempC at or above
// windChillMinWindKph, per the Environment Canada model.
const (
	windChillMaxTempC   = 10.0
	windChillMinWindKph = 4.8
)

// HeatIndex computes the simplified perceived temperature in °C from air
// temperature and relative humidity: HI = T + (RH/100)·(T − 15).
func HeatIndex(tempC, humidity float64) float64 {
	return tempC + (humidity/100)*(tempC-15)
}

// WindChill computes the Environment Canada wind chill in °C. Outside the
// model's applicability window it returns the air temperature unchanged.
func WindChill(tempC, windKph float64) float64 {
	if tempC > windChillMaxTempC || windKph < windChillMinWindKph {
		return tempC
	}
	v := math.Pow(windKph, 0.16)
	return 13.12 + 0.6215*tempC - 11.37*v + 0.3965*tempC*v
}

// applyMovingAverages computes trailing moving averages per metric per
// location over the configured window, minimum period one, so the first row
// of a location averages only itself. Observations must already be sorted
// by country, location, and ascending timestamp. Runs are keyed on
// (country, location): two countries can both have a location named
// "Springfield" without their series merging.
func applyMovingAverages(observations []Observation, cfg CleanConfig) {
	if cfg.MovingAvgWindow <= 0 || len(cfg.MovingAvgMetrics) == 0 {
		return
	}

	start := 0
	for i := 1; i <= len(observations); i++ {
		if i < len(observations) &&
			observations[i].Country == observations[start].Country &&
			observations[i].LocationName == observations[start].LocationName {
			continue
		}
		movingAverageRun(observations[start:i], cfg)
		start = i
	}
}

// movingAverageRun fills MovingAverages for one location's time-ordered run.
func movingAverageRun(run []Observation, cfg CleanConfig) {
	for i := range run {
		run[i].MovingAverages = make(map[Metric]float64, len(cfg.MovingAvgMetrics))
	}
	for _, m := range cfg.MovingAvgMetrics {
		var sum float64
		for i := range run {
			v, _ := run[i].Value(m)
			sum += v
			if i >= cfg.MovingAvgWindow {
				prev, _ := run[i-cfg.MovingAvgWindow].Value(m)
				sum -= prev
			}
			n := i + 1
			if n > cfg.MovingAvgWindow {
				n = cfg.MovingAvgWindow
			}
			run[i].MovingAverages[m] = sum / float64(n)
		}
	}
}
