package model

import "time"

// RequestReport is an agency's request activity over a period, rendered as a spreadsheet.
type RequestReport struct {
	Agency      Agency
	PeriodStart time.Time
	PeriodEnd   time.Time
	Requests    []Request
}

// RequestGroup is the set of report rows sharing a status.
type RequestGroup struct {
	Status   RequestStatus
	Requests []Request
}

// Groups splits the report by status in lifecycle order, skipping empty statuses.
func (r RequestReport) Groups() []RequestGroup {
	order := []RequestStatus{
		RequestStatusPending,
		RequestStatusAccepted,
		RequestStatusAssigned,
		RequestStatusProcessing,
		RequestStatusCompleted,
		RequestStatusRejected,
	}
	byStatus := make(map[RequestStatus][]Request, len(order))
	for _, req := range r.Requests {
		byStatus[req.Status] = append(byStatus[req.Status], req)
	}
	groups := make([]RequestGroup, 0, len(order))
	for _, status := range order {
		if rows := byStatus[status]; len(rows) > 0 {
			groups = append(groups, RequestGroup{Status: status, Requests: rows})
		}
	}
	return groups
}

// TotalWeight sums the weight of every request in the report.
func (r RequestReport) TotalWeight() float64 {
	total := 0.0
	for _, req := range r.Requests {
		total += req.Weight
	}
	return total
}

// Certificate is the recycling certificate issued for a completed request.
type Certificate struct {
	Request       Request
	User          User
	Agency        Agency
	PointsAwarded int64
	IssuedAt      time.Time
}
