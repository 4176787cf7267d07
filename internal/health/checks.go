package health

// memoryThreshold is the fraction of the limit at which memory_ok flips.
const memoryThreshold = 0.9

// Checks is the per-request health result. OverallStatus is derived and is
// true iff every individual check is true; build values with NewChecks.
type Checks struct {
	LogsWritable       bool `json:"logs_writable"`
	MemoryOK           bool `json:"memory_ok"`
	DatabaseConnection bool `json:"database_connection"`
	OverallStatus      bool `json:"overall_status"`
}

func NewChecks(logsWritable, memoryOK, databaseConnection bool) Checks {
	return Checks{
		LogsWritable:       logsWritable,
		MemoryOK:           memoryOK,
		DatabaseConnection: databaseConnection,
		OverallStatus:      logsWritable && memoryOK && databaseConnection,
	}
}

// Failed lists the names of failing checks in declaration order.
func (c Checks) Failed() []string {
	var out []string
	if !c.LogsWritable {
		out = append(out, "logs_writable")
	}
	if !c.MemoryOK {
		out = append(out, "memory_ok")
	}
	if !c.DatabaseConnection {
		out = append(out, "database_connection")
	}
	return out
}

// Status is the human label used in the detailed snapshot.
func (c Checks) Status() string {
	if c.OverallStatus {
		return "healthy"
	}
	return "unhealthy"
}

// Readiness holds the dependency checks behind ?ready.
type Readiness struct {
	Database         bool `json:"database"`
	Cache            bool `json:"cache"`
	ExternalServices bool `json:"external_services"`
}

func (r Readiness) Ready() bool {
	return r.Database && r.Cache && r.ExternalServices
}

func (r Readiness) Failed() []string {
	var out []string
	if !r.Database {
		out = append(out, "database")
	}
	if !r.Cache {
		out = append(out, "cache")
	}
	if !r.ExternalServices {
		out = append(out, "external_services")
	}
	return out
}

// MemoryOK reports whether current is below 90% of limit. A zero limit is
// treated as unlimited.
func MemoryOK(current, limit uint64) bool {
	if limit == 0 {
		return true
	}
	return float64(current) < memoryThreshold*float64(limit)
}
