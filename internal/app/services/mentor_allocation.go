package services

import "github.com/placeintern/backend/internal/app/models"

// Placement pairs a student with the mentor chosen for it
type Placement struct {
	StudentID int64
	MentorID  int64
}

// MentorTally is a mentor's load before and after an allocation
type MentorTally struct {
	Mentor models.Staff
	Before int
	After  int
}

// Allocation is the outcome of AllocateMentors
type Allocation struct {
	Placements []Placement
	Unassigned []int64
	Mentors    []MentorTally
}

// AllocateMentors distributes students over mentors. Each student, in the given
// order, goes to the mentor with the smallest current load; ties go to the mentor
// that comes first in mentors. Mentors at their MaxMentees are skipped and students
// left without a mentor are returned as unassigned. The result depends only on the
// order of the inputs.
func AllocateMentors(students []models.Student, mentors []models.MentorLoad) Allocation {
	out := Allocation{
		Placements: make([]Placement, 0, len(students)),
		Unassigned: []int64{},
		Mentors:    make([]MentorTally, len(mentors)),
	}
	for i, m := range mentors {
		out.Mentors[i] = MentorTally{Mentor: m.Mentor, Before: m.Load, After: m.Load}
	}

	for _, student := range students {
		best := -1
		for i := range out.Mentors {
			tally := &out.Mentors[i]
			if !tally.Mentor.HasCapacity(tally.After) {
				continue
			}
			if best < 0 || tally.After < out.Mentors[best].After {
				best = i
			}
		}
		if best < 0 {
			out.Unassigned = append(out.Unassigned, student.ID)
			continue
		}
		out.Mentors[best].After++
		out.Placements = append(out.Placements, Placement{StudentID: student.ID, MentorID: out.Mentors[best].Mentor.ID})
	}
	return out
}
