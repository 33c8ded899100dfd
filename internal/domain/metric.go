package domain

// Metric names a numeric observation column. The names match the normalized
// CSV headers so rules files and API parameters use the same vocabulary.
type Metric string

const (
	MetricTemperatureC Metric = "temperature_celsius"
	MetricTemperatureF Metric = "temperature_fahrenheit"
	MetricWindKph      Metric = "wind_kph"
	MetricWindMph      Metric = "wind_mph"
	MetricWindDegree   Metric = "wind_degree"
	MetricPressureMb   Metric = "pressure_mb"
	MetricPressureIn   Metric = "pressure_in"
	MetricPrecipMm     Metric = "precip_mm"
	MetricPrecipIn     Metric = "precip_in"
	MetricHumidity     Metric = "humidity"
	MetricCloud        Metric = "cloud"
	MetricFeelsLikeC   Metric = "feels_like_celsius"
	MetricFeelsLikeF   Metric = "feels_like_fahrenheit"
	MetricVisibilityKm Metric = "visibility_km"
	MetricVisibilityMi Metric = "visibility_miles"
	MetricUVIndex      Metric = "uv_index"
	MetricGustKph      Metric = "gust_kph"
	MetricGustMph      Metric = "gust_mph"

	MetricAirQualityCO   Metric = "air_quality_carbon_monoxide"
	MetricAirQualityO3   Metric = "air_quality_ozone"
	MetricAirQualityNO2  Metric = "air_quality_nitrogen_dioxide"
	MetricAirQualitySO2  Metric = "air_quality_sulphur_dioxide"
	MetricAirQualityPM25 Metric = "air_quality_pm2_5"
	MetricAirQualityPM10 Metric = "air_quality_pm10"
	MetricAirQualityEPA  Metric = "air_quality_us_epa_index"
	MetricAirQualityGB   Metric = "air_quality_gb_defra_index"

	MetricHeatIndexC Metric = "heat_index_celsius"
	MetricWindChillC Metric = "wind_chill_celsius"
)

// Range bounds a metric's physically valid values.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Clip bounds v to the nearest edge of the range.
func (r Range) Clip(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Metrics lists every numeric source metric in output column order.
// Derived metrics (heat index, wind chill) are not included; they are
// computed after cleaning, never imputed or clipped.
var Metrics = []Metric{
	MetricTemperatureC,
	MetricTemperatureF,
	MetricWindKph,
	MetricWindMph,
	MetricWindDegree,
	MetricPressureMb,
	MetricPressureIn,
	MetricPrecipMm,
	MetricPrecipIn,
	MetricHumidity,
	MetricCloud,
	MetricFeelsLikeC,
	MetricFeelsLikeF,
	MetricVisibilityKm,
	MetricVisibilityMi,
	MetricUVIndex,
	MetricGustKph,
	MetricGustMph,
	MetricAirQualityCO,
	MetricAirQualityO3,
	MetricAirQualityNO2,
	MetricAirQualitySO2,
	MetricAirQualityPM25,
	MetricAirQualityPM10,
	MetricAirQualityEPA,
	MetricAirQualityGB,
}

// DefaultRanges holds the documented physical ranges used for clipping.
// Metrics absent from the map are never clipped (wind degree, unit
// conversions whose celsius/kph counterpart is already bounded).
var DefaultRanges = map[Metric]Range{
	MetricTemperatureC:   {Min: -50, Max: 60},
	MetricHumidity:       {Min: 0, Max: 100},
	MetricPressureMb:     {Min: 800, Max: 1100},
	MetricWindKph:        {Min: 0, Max: 400},
	MetricPrecipMm:       {Min: 0, Max: 1000},
	MetricCloud:          {Min: 0, Max: 100},
	MetricUVIndex:        {Min: 0, Max: 15},
	MetricAirQualityPM25: {Min: 0, Max: 1000},
	MetricAirQualityPM10: {Min: 0, Max: 1000},
	MetricAirQualityCO:   {Min: 0, Max: 50000},
	MetricAirQualityO3:   {Min: 0, Max: 5000},
	MetricAirQualityNO2:  {Min: 0, Max: 5000},
	MetricAirQualitySO2:  {Min: 0, Max: 5000},
	MetricAirQualityEPA:  {Min: 0, Max: 10},
	MetricAirQualityGB:   {Min: 0, Max: 10},
}

// rawAccessors maps each metric to its RawObservation field.
var rawAccessors = map[Metric]struct {
	get func(*RawObservation) float64
	set func(*RawObservation, float64)
}{
	MetricTemperatureC:   {func(r *RawObservation) float64 { return r.TemperatureC }, func(r *RawObservation, v float64) { r.TemperatureC = v }},
	MetricTemperatureF:   {func(r *RawObservation) float64 { return r.TemperatureF }, func(r *RawObservation, v float64) { r.TemperatureF = v }},
	MetricWindKph:        {func(r *RawObservation) float64 { return r.WindKph }, func(r *RawObservation, v float64) { r.WindKph = v }},
	MetricWindMph:        {func(r *RawObservation) float64 { return r.WindMph }, func(r *RawObservation, v float64) { r.WindMph = v }},
	MetricWindDegree:     {func(r *RawObservation) float64 { return r.WindDegree }, func(r *RawObservation, v float64) { r.WindDegree = v }},
	MetricPressureMb:     {func(r *RawObservation) float64 { return r.PressureMb }, func(r *RawObservation, v float64) { r.PressureMb = v }},
	MetricPressureIn:     {func(r *RawObservation) float64 { return r.PressureIn }, func(r *RawObservation, v float64) { r.PressureIn = v }},
	MetricPrecipMm:       {func(r *RawObservation) float64 { return r.PrecipMm }, func(r *RawObservation, v float64) { r.PrecipMm = v }},
	MetricPrecipIn:       {func(r *RawObservation) float64 { return r.PrecipIn }, func(r *RawObservation, v float64) { r.PrecipIn = v }},
	MetricHumidity:       {func(r *RawObservation) float64 { return r.Humidity }, func(r *RawObservation, v float64) { r.Humidity = v }},
	MetricCloud:          {func(r *RawObservation) float64 { return r.Cloud }, func(r *RawObservation, v float64) { r.Cloud = v }},
	MetricFeelsLikeC:     {func(r *RawObservation) float64 { return r.FeelsLikeC }, func(r *RawObservation, v float64) { r.FeelsLikeC = v }},
	MetricFeelsLikeF:     {func(r *RawObservation) float64 { return r.FeelsLikeF }, func(r *RawObservation, v float64) { r.FeelsLikeF = v }},
	MetricVisibilityKm:   {func(r *RawObservation) float64 { return r.VisibilityKm }, func(r *RawObservation, v float64) { r.VisibilityKm = v }},
	MetricVisibilityMi:   {func(r *RawObservation) float64 { return r.VisibilityMi }, func(r *RawObservation, v float64) { r.VisibilityMi = v }},
	MetricUVIndex:        {func(r *RawObservation) float64 { return r.UVIndex }, func(r *RawObservation, v float64) { r.UVIndex = v }},
	MetricGustKph:        {func(r *RawObservation) float64 { return r.GustKph }, func(r *RawObservation, v float64) { r.GustKph = v }},
	MetricGustMph:        {func(r *RawObservation) float64 { return r.GustMph }, func(r *RawObservation, v float64) { r.GustMph = v }},
	MetricAirQualityCO:   {func(r *RawObservation) float64 { return r.AirQualityCO }, func(r *RawObservation, v float64) { r.AirQualityCO = v }},
	MetricAirQualityO3:   {func(r *RawObservation) float64 { return r.AirQualityOzone }, func(r *RawObservation, v float64) { r.AirQualityOzone = v }},
	MetricAirQualityNO2:  {func(r *RawObservation) float64 { return r.AirQualityNO2 }, func(r *RawObservation, v float64) { r.AirQualityNO2 = v }},
	MetricAirQualitySO2:  {func(r *RawObservation) float64 { return r.AirQualitySO2 }, func(r *RawObservation, v float64) { r.AirQualitySO2 = v }},
	MetricAirQualityPM25: {func(r *RawObservation) float64 { return r.AirQualityPM25 }, func(r *RawObservation, v float64) { r.AirQualityPM25 = v }},
	MetricAirQualityPM10: {func(r *RawObservation) float64 { return r.AirQualityPM10 }, func(r *RawObservation, v float64) { r.AirQualityPM10 = v }},
	MetricAirQualityEPA:  {func(r *RawObservation) float64 { return r.AirQualityEPAIndex }, func(r *RawObservation, v float64) { r.AirQualityEPAIndex = v }},
	MetricAirQualityGB:   {func(r *RawObservation) float64 { return r.AirQualityGBDefra }, func(r *RawObservation, v float64) { r.AirQualityGBDefra = v }},
}

// SetRawMetric writes a metric value onto a raw observation. Unknown metrics
// are ignored.
func SetRawMetric(r *RawObservation, m Metric, v float64) {
	if acc, ok := rawAccessors[m]; ok {
		acc.set(r, v)
	}
}

// Value returns the named metric from a cleaned observation. Derived metrics
// are addressable here so the detector and API can filter on them; unknown
// metrics return (0, false).
func (o Observation) Value(m Metric) (float64, bool) {
	switch m {
	case MetricTemperatureC:
		return o.TemperatureC, true
	case MetricTemperatureF:
		return o.TemperatureF, true
	case MetricWindKph:
		return o.WindKph, true
	case MetricWindMph:
		return o.WindMph, true
	case MetricWindDegree:
		return o.WindDegree, true
	case MetricPressureMb:
		return o.PressureMb, true
	case MetricPressureIn:
		return o.PressureIn, true
	case MetricPrecipMm:
		return o.PrecipMm, true
	case MetricPrecipIn:
		return o.PrecipIn, true
	case MetricHumidity:
		return o.Humidity, true
	case MetricCloud:
		return o.Cloud, true
	case MetricFeelsLikeC:
		return o.FeelsLikeC, true
	case MetricFeelsLikeF:
		return o.FeelsLikeF, true
	case MetricVisibilityKm:
		return o.VisibilityKm, true
	case MetricVisibilityMi:
		return o.VisibilityMi, true
	case MetricUVIndex:
		return o.UVIndex, true
	case MetricGustKph:
		return o.GustKph, true
	case MetricGustMph:
		return o.GustMph, true
	case MetricAirQualityCO:
		return o.AirQualityCO, true
	case MetricAirQualityO3:
		return o.AirQualityOzone, true
	case MetricAirQualityNO2:
		return o.AirQualityNO2, true
	case MetricAirQualitySO2:
		return o.AirQualitySO2, true
	case MetricAirQualityPM25:
		return o.AirQualityPM25, true
	case MetricAirQualityPM10:
		return o.AirQualityPM10, true
	case MetricAirQualityEPA:
		return o.AirQualityEPAIndex, true
	case MetricAirQualityGB:
		return o.AirQualityGBDefra, true
	case MetricHeatIndexC:
		return o.HeatIndexC, true
	case MetricWindChillC:
		return o.WindChillC, true
	default:
		return 0, false
	}
}

// ValidMetric reports whether name is a known metric.
func ValidMetric(name string) bool {
	m := Metric(name)
	if _, ok := rawAccessors[m]; ok {
		return true
	}
	return m == MetricHeatIndexC || m == MetricWindChillC
}
