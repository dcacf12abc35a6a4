package types

// Field names a measurement column. The value is the column header used by
// the source dataset and the prefix of every summary column.
type Field string

const (
	PM25 Field = "PM2.5"
	PM10 Field = "PM10"
	SO2  Field = "SO2"
	NO2  Field = "NO2"
	CO   Field = "CO"
	O3   Field = "O3"
	TEMP Field = "TEMP"
	PRES Field = "PRES"
	DEWP Field = "DEWP"
	WSPM Field = "WSPM"
)

var (
	Particulates = []Field{PM25, PM10}
	Gases        = []Field{SO2, NO2, CO, O3}
	Weather      = []Field{TEMP, PRES, DEWP, WSPM}
)

// Fields lists every measurement field in dataset column order.
func Fields() []Field {
	out := make([]Field, 0, len(Particulates)+len(Gases)+len(Weather))
	out = append(out, Particulates...)
	out = append(out, Gases...)
	out = append(out, Weather...)
	return out
}

// Unit is the display unit of a weather field, empty for the others.
func (f Field) Unit() string {
	switch f {
	case TEMP, DEWP:
		return "°C"
	case PRES:
		return "hPa"
	case WSPM:
		return "m/s"
	default:
		return ""
	}
}

type Station struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Record is one hourly observation. Nil measurements are missing values.
type Record struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Day     int    `json:"day"`
	Hour    int    `json:"hour"`
	Station string `json:"station"`

	PM25 *float64 `json:"pm25,omitempty"`
	PM10 *float64 `json:"pm10,omitempty"`
	SO2  *float64 `json:"so2,omitempty"`
	NO2  *float64 `json:"no2,omitempty"`
	CO   *float64 `json:"co,omitempty"`
	O3   *float64 `json:"o3,omitempty"`
	TEMP *float64 `json:"temp,omitempty"`
	PRES *float64 `json:"pres,omitempty"`
	DEWP *float64 `json:"dewp,omitempty"`
	WSPM *float64 `json:"wspm,omitempty"`
}

func (r *Record) slot(f Field) **float64 {
	switch f {
	case PM25:
		return &r.PM25
	case PM10:
		return &r.PM10
	case SO2:
		return &r.SO2
	case NO2:
		return &r.NO2
	case CO:
		return &r.CO
	case O3:
		return &r.O3
	case TEMP:
		return &r.TEMP
	case PRES:
		return &r.PRES
	case DEWP:
		return &r.DEWP
	case WSPM:
		return &r.WSPM
	default:
		return nil
	}
}

// Value returns the measurement for f, or false when it is missing or f is
// not a measurement field.
func (r Record) Value(f Field) (float64, bool) {
	p := r.slot(f)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// Set stores v for f. A nil v marks the value as missing.
func (r *Record) Set(f Field, v *float64) {
	if p := r.slot(f); p != nil {
		*p = v
	}
}

// Float returns a pointer to v, handy for building records in code.
func Float(v float64) *float64 {
	return &v
}
