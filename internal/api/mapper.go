package api

import "github.com/muwahhidun/durus/internal/domain"

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func mapTheme(d themeDTO) domain.Theme {
	return domain.Theme{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		SortOrder:   d.SortOrder,
		IsActive:    d.IsActive,
	}
}

func mapAuthor(d authorDTO) domain.Author {
	return domain.Author{
		ID:        d.ID,
		Name:      d.Name,
		Biography: d.Biography,
		BirthYear: deref(d.BirthYear),
		DeathYear: deref(d.DeathYear),
		IsActive:  d.IsActive,
	}
}

func mapBook(d bookDTO) domain.Book {
	b := domain.Book{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		ThemeID:     deref(d.ThemeID),
		AuthorID:    deref(d.AuthorID),
		SortOrder:   d.SortOrder,
		IsActive:    d.IsActive,
	}
	// Some payloads carry only the nested relation, not the raw id.
	if b.ThemeID == 0 && d.Theme != nil {
		b.ThemeID = d.Theme.ID
	}
	if b.AuthorID == 0 && d.Author != nil {
		b.AuthorID = d.Author.ID
	}
	return b
}

func mapTeacher(d teacherDTO) domain.Teacher {
	return domain.Teacher{
		ID:        d.ID,
		Name:      d.Name,
		Biography: d.Biography,
		IsActive:  d.IsActive,
	}
}

func mapSeries(d seriesDTO) domain.Series {
	s := domain.Series{
		ID:          d.ID,
		Name:        d.Name,
		Year:        d.Year,
		Description: d.Description,
		TeacherID:   d.TeacherID,
		BookID:      deref(d.BookID),
		ThemeID:     deref(d.ThemeID),
		IsCompleted: d.IsCompleted,
		IsActive:    d.IsActive,
		Order:       d.Order,
		LessonCount: d.LessonCount,
	}
	if d.Teacher != nil {
		s.TeacherName = d.Teacher.Name
		if s.TeacherID == 0 {
			s.TeacherID = d.Teacher.ID
		}
	}
	if d.Book != nil {
		s.BookName = d.Book.Name
		if s.BookID == 0 {
			s.BookID = d.Book.ID
		}
	}
	if d.Theme != nil {
		s.ThemeName = d.Theme.Name
		if s.ThemeID == 0 {
			s.ThemeID = d.Theme.ID
		}
	}
	return s
}

// mapLesson converts a per-series listing item. The resulting Lesson has a
// zero SeriesID; the caller injects the owning series id.
func mapLesson(d lessonListDTO) domain.Lesson {
	l := domain.Lesson{
		ID:              d.ID,
		LessonNumber:    deref(d.LessonNumber),
		Title:           d.DisplayTitle,
		Description:     d.Description,
		AudioURL:        d.AudioURL,
		DurationSeconds: deref(d.DurationSeconds),
		Tags:            d.Tags,
		IsActive:        d.IsActive,
	}
	if d.Teacher != nil {
		l.TeacherID = d.Teacher.ID
		l.TeacherName = d.Teacher.Name
	}
	if d.Book != nil {
		l.BookID = d.Book.ID
		l.BookName = d.Book.Name
	}
	return l
}

func mapBookmark(d bookmarkDTO) domain.Bookmark {
	return domain.Bookmark{
		ID:         d.ID,
		LessonID:   d.LessonID,
		CustomName: d.CustomName,
		CreatedAt:  d.CreatedAt,
	}
}

func mapTest(d testDTO) *domain.Test {
	t := &domain.Test{
		ID:           d.ID,
		Title:        d.Title,
		Description:  d.Description,
		SeriesID:     d.SeriesID,
		TeacherID:    d.TeacherID,
		PassingScore: d.PassingScore,
		SecondsPerQ:  d.SecondsPerQ,
		IsActive:     d.IsActive,
	}
	for _, q := range d.Questions {
		t.Questions = append(t.Questions, domain.TestQuestion{
			ID:           q.ID,
			LessonID:     q.LessonID,
			Text:         q.QuestionText,
			Options:      q.Options,
			CorrectIndex: deref(q.CorrectIndex),
			Order:        q.Order,
			Points:       q.Points,
		})
	}
	return t
}

func mapAttempt(d attemptDTO) *domain.Attempt {
	return &domain.Attempt{
		ID:               d.ID,
		TestID:           d.TestID,
		LessonID:         deref(d.LessonID),
		StartedAt:        d.StartedAt,
		CompletedAt:      d.CompletedAt,
		Score:            d.Score,
		MaxScore:         d.MaxScore,
		Passed:           d.Passed,
		Answers:          d.Answers,
		TimeSpentSeconds: deref(d.TimeSpentSeconds),
	}
}
