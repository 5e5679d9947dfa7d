package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeintern/backend/internal/app/models"
)

func students(n int) []models.Student {
	out := make([]models.Student, n)
	for i := range out {
		out[i] = models.Student{ID: int64(100 + i)}
	}
	return out
}

func mentor(id int64, maxMentees, load int) models.MentorLoad {
	return models.MentorLoad{Mentor: models.Staff{ID: id, MaxMentees: maxMentees}, Load: load}
}

func TestAllocateMentorsEvenSpread(t *testing.T) {
	got := AllocateMentors(students(7), []models.MentorLoad{mentor(1, 0, 0), mentor(2, 0, 0), mentor(3, 0, 0)})

	require.Len(t, got.Placements, 7)
	assert.Empty(t, got.Unassigned)
	assert.Equal(t, []Placement{
		{100, 1}, {101, 2}, {102, 3}, {103, 1}, {104, 2}, {105, 3}, {106, 1},
	}, got.Placements)
	assert.Equal(t, 3, got.Mentors[0].After)
	assert.Equal(t, 2, got.Mentors[1].After)
	assert.Equal(t, 2, got.Mentors[2].After)
}

func TestAllocateMentorsFillsLightestFirst(t *testing.T) {
	got := AllocateMentors(students(4), []models.MentorLoad{mentor(1, 0, 5), mentor(2, 0, 2), mentor(3, 0, 3)})

	assert.Equal(t, []Placement{{100, 2}, {101, 2}, {102, 3}, {103, 2}}, got.Placements)
	assert.Equal(t, 5, got.Mentors[0].After)
	assert.Equal(t, 5, got.Mentors[1].After)
	assert.Equal(t, 4, got.Mentors[2].After)
	assert.Equal(t, 2, got.Mentors[1].Before)
}

func TestAllocateMentorsRespectsCapacity(t *testing.T) {
	got := AllocateMentors(students(6), []models.MentorLoad{mentor(1, 2, 1), mentor(2, 3, 0), mentor(3, 1, 1)})

	assert.Len(t, got.Placements, 4)
	assert.Equal(t, []int64{104, 105}, got.Unassigned)
	for _, m := range got.Mentors {
		assert.LessOrEqual(t, m.After, m.Mentor.MaxMentees)
	}
	assert.Equal(t, 1, got.Mentors[2].After)
}

func TestAllocateMentorsWithoutMentors(t *testing.T) {
	got := AllocateMentors(students(2), nil)
	assert.Empty(t, got.Placements)
	assert.Equal(t, []int64{100, 101}, got.Unassigned)
}

func TestAllocateMentorsProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		nStudents := rng.Intn(60)
		nMentors := 1 + rng.Intn(8)
		equalStart := round%2 == 0

		mentors := make([]models.MentorLoad, nMentors)
		for i := range mentors {
			load := 0
			if !equalStart {
				load = rng.Intn(5)
			}
			maxMentees := 0
			if rng.Intn(3) == 0 {
				maxMentees = load + rng.Intn(6)
			}
			mentors[i] = mentor(int64(i+1), maxMentees, load)
		}
		input := students(nStudents)

		got := AllocateMentors(input, mentors)
		again := AllocateMentors(input, mentors)
		assert.Equal(t, got, again, "allocation must be deterministic")

		placed := map[int64]bool{}
		for _, p := range got.Placements {
			assert.False(t, placed[p.StudentID], "student %d placed twice", p.StudentID)
			placed[p.StudentID] = true
		}
		for _, id := range got.Unassigned {
			assert.False(t, placed[id], "student %d both placed and unassigned", id)
		}
		assert.Equal(t, nStudents, len(got.Placements)+len(got.Unassigned))

		for _, m := range got.Mentors {
			if m.Mentor.MaxMentees > 0 {
				assert.LessOrEqual(t, m.After, max(m.Mentor.MaxMentees, m.Before))
			}
		}

		uncapped := true
		for _, m := range mentors {
			if m.Mentor.MaxMentees > 0 {
				uncapped = false
			}
		}
		if equalStart && uncapped {
			lo, hi := got.Mentors[0].After, got.Mentors[0].After
			for _, m := range got.Mentors {
				lo = min(lo, m.After)
				hi = max(hi, m.After)
			}
			assert.LessOrEqual(t, hi-lo, 1, "loads differ by more than one")
		}
	}
}
