package domain

// Tally is the per-category outcome: counts split by bucket plus, in list
// mode, the matching records in event-time order.
type Tally struct {
	Collaborator int              `json:"collaborator"`
	Community    int              `json:"community"`
	Records      []ActivityRecord `json:"records,omitempty"`
}

// Total is the header count. It always equals the sum of both buckets.
func (t Tally) Total() int {
	return t.Collaborator + t.Community
}

// Add counts the record in its association's bucket.
func (t *Tally) Add(r ActivityRecord, keepRecord bool) {
	if r.Association.Bucket() == BucketCollaborator {
		t.Collaborator++
	} else {
		t.Community++
	}
	if keepRecord {
		t.Records = append(t.Records, r)
	}
}

// CategoryTally pairs a category with its tally. For the terminal categories
// it also carries open-to-event duration stats, in hours.
type CategoryTally struct {
	Category    Category `json:"category"`
	Tally       Tally    `json:"tally"`
	MedianHours float64  `json:"median_hours,omitempty"`
	P90Hours    float64  `json:"p90_hours,omitempty"`
}
