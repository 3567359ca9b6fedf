package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eddielimmm/my-agile-plus/internal/goal"
	"github.com/eddielimmm/my-agile-plus/internal/persist"
	"github.com/eddielimmm/my-agile-plus/internal/sprint"
	"github.com/eddielimmm/my-agile-plus/internal/stats"
	"github.com/eddielimmm/my-agile-plus/internal/store"
	"github.com/eddielimmm/my-agile-plus/internal/tasks"
	"github.com/eddielimmm/my-agile-plus/internal/timer"
	"github.com/eddielimmm/my-agile-plus/internal/timeutil"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, tasks.ErrInvalidTask), errors.Is(err, tasks.ErrInvalidEntry),
		errors.Is(err, sprint.ErrInvalidSprint), errors.Is(err, goal.ErrInvalidTarget),
		errors.Is(err, timer.ErrInvalidTask), errors.Is(err, timeutil.ErrEmptyRange):
		return http.StatusBadRequest
	case errors.Is(err, tasks.ErrTaskNotFound), errors.Is(err, sprint.ErrSprintNotFound),
		errors.Is(err, store.ErrNotFound), errors.Is(err, persist.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sprint.ErrOverlap), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrPermissionDenied):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func (s *Server) failErr(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("api request failed", "path", c.FullPath(), "error", err)
	}
	fail(c, status, err)
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func (s *Server) parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := timeutil.ParseDate(value, s.app.Location())
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func taskID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, errors.New("invalid task id"))
		return 0, false
	}
	return id, true
}

// Tasks

type taskRequest struct {
	Title       string `json:"title"`
	Size        string `json:"size"`
	Points      int    `json:"points"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	Folder      string `json:"folder"`
	Description string `json:"description"`
}

func (s *Server) draft(req taskRequest) (tasks.Draft, error) {
	size, err := store.ParseSize(req.Size)
	if err != nil {
		return tasks.Draft{}, errors.Join(tasks.ErrInvalidTask, err)
	}
	prio, err := store.ParsePriority(req.Priority)
	if err != nil {
		return tasks.Draft{}, errors.Join(tasks.ErrInvalidTask, err)
	}
	due, err := s.parseDate(req.DueDate)
	if err != nil {
		return tasks.Draft{}, errors.Join(tasks.ErrInvalidTask, err)
	}
	return tasks.Draft{
		Title:       req.Title,
		Size:        size,
		Points:      req.Points,
		Priority:    prio,
		DueDate:     due,
		Folder:      req.Folder,
		Description: req.Description,
	}, nil
}

func (s *Server) handleListTasks(c *gin.Context) {
	list := s.app.Tasks.Snapshot()
	if folder := c.Query("folder"); folder != "" {
		list = s.app.Tasks.InFolder(folder)
	}
	if list == nil {
		list = []store.Task{}
	}
	ok(c, http.StatusOK, list)
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, valid := taskID(c, "id")
	if !valid {
		return
	}
	t, found := s.app.Tasks.Task(id)
	if !found {
		fail(c, http.StatusNotFound, tasks.ErrTaskNotFound)
		return
	}
	ok(c, http.StatusOK, t)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	d, err := s.draft(req)
	if err != nil {
		s.failErr(c, err)
		return
	}
	t, err := s.app.Tasks.Add(c.Request.Context(), d)
	if err != nil {
		s.failErr(c, err)
		return
	}
	s.app.RefreshReport(c.Request.Context())
	ok(c, http.StatusCreated, t)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, valid := taskID(c, "id")
	if !valid {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	d, err := s.draft(req)
	if err != nil {
		s.failErr(c, err)
		return
	}
	t, achievements, err := s.app.EditTask(c.Request.Context(), id, d)
	if err != nil {
		s.failErr(c, err)
		return
	}
	if achievements == nil {
		achievements = []goal.Achievement{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": t, "achievements": achievements})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, valid := taskID(c, "id")
	if !valid {
		return
	}
	if err := s.app.DeleteTask(c.Request.Context(), id); err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted"})
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	id, valid := taskID(c, "id")
	if !valid {
		return
	}
	req := struct {
		Completed *bool `json:"completed"`
	}{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
	}
	completed := req.Completed == nil || *req.Completed

	t, achievements, err := s.app.SetCompleted(c.Request.Context(), id, completed)
	if err != nil {
		s.failErr(c, err)
		return
	}
	if achievements == nil {
		achievements = []goal.Achievement{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": t, "achievements": achievements})
}

func (s *Server) handleAddEntry(c *gin.Context) {
	id, valid := taskID(c, "id")
	if !valid {
		return
	}
	req := struct {
		Date    string `json:"date"`
		Hours   int    `json:"hours"`
		Minutes int    `json:"minutes"`
		From    string `json:"from"`
		To      string `json:"to"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	m := tasks.ManualEntry{Hours: req.Hours, Minutes: req.Minutes, From: req.From, To: req.To}
	if date != nil {
		m.Date = *date
	}
	e, err := s.app.AddManualEntry(c.Request.Context(), id, m)
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, e)
}

// Folders

func (s *Server) handleListFolders(c *gin.Context) {
	folders := s.app.Tasks.Folders()
	if folders == nil {
		folders = []store.Folder{}
	}
	ok(c, http.StatusOK, folders)
}

type folderRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	f, err := s.app.Tasks.CreateFolder(c.Request.Context(), req.Name)
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, f)
}

func (s *Server) handleRenameFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.app.Tasks.RenameFolder(c.Request.Context(), c.Param("id"), req.Name); err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Folder renamed"})
}

func (s *Server) handleDeleteFolder(c *gin.Context) {
	if err := s.app.Tasks.DeleteFolder(c.Request.Context(), c.Param("id")); err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Folder deleted"})
}

// Timer

func (s *Server) timerView() gin.H {
	st := s.app.Timer.State()
	return gin.H{
		"task_id":    st.TaskID,
		"active":     st.Active,
		"started_at": st.StartedAt,
		"elapsed":    st.Elapsed,
		"display":    timeutil.FormatSeconds(st.Elapsed),
	}
}

func (s *Server) handleTimerState(c *gin.Context) {
	ok(c, http.StatusOK, s.timerView())
}

func (s *Server) handleTimerStart(c *gin.Context) {
	req := struct {
		TaskID int64 `json:"task_id" binding:"required"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if _, found := s.app.Tasks.Task(req.TaskID); !found {
		fail(c, http.StatusNotFound, tasks.ErrTaskNotFound)
		return
	}
	if err := s.app.Timer.Start(c.Request.Context(), req.TaskID); err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, s.timerView())
}

func (s *Server) handleTimerStop(c *gin.Context) {
	e, err := s.app.Timer.Stop(c.Request.Context())
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// Sprints

type sprintRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// dates parses the range; the end date covers its whole day.
func (s *Server) dates(req sprintRequest) (time.Time, time.Time, error) {
	start, err := s.parseDate(req.StartDate)
	if err != nil || start == nil {
		return time.Time{}, time.Time{}, errors.Join(sprint.ErrInvalidSprint, errors.New("start_date is required"), err)
	}
	end, err := s.parseDate(req.EndDate)
	if err != nil || end == nil {
		return time.Time{}, time.Time{}, errors.Join(sprint.ErrInvalidSprint, errors.New("end_date is required"), err)
	}
	return *start, timeutil.EndOfDay(*end), nil
}

func (s *Server) handleListSprints(c *gin.Context) {
	sprints := s.app.Sprints.Sprints()
	if sprints == nil {
		sprints = []store.Sprint{}
	}
	current := ""
	if sp, found := s.app.Sprints.Current(); found {
		current = sp.ID
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sprints, "current": current})
}

func (s *Server) handleCreateSprint(c *gin.Context) {
	var req sprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	start, end, err := s.dates(req)
	if err != nil {
		s.failErr(c, err)
		return
	}
	sp, err := s.app.Sprints.Create(c.Request.Context(), req.Name, start, end)
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, sp)
}

func (s *Server) handleUpdateSprint(c *gin.Context) {
	var req sprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	sp, found := s.app.Sprints.Sprint(c.Param("id"))
	if !found {
		fail(c, http.StatusNotFound, sprint.ErrSprintNotFound)
		return
	}
	start, end, err := s.dates(req)
	if err != nil {
		s.failErr(c, err)
		return
	}
	sp.Name, sp.StartDate, sp.EndDate = req.Name, start, end
	if err := s.app.Sprints.Update(c.Request.Context(), sp); err != nil {
		s.failErr(c, err)
		return
	}
	updated, _ := s.app.Sprints.Sprint(sp.ID)
	ok(c, http.StatusOK, updated)
}

func (s *Server) handleDeleteSprint(c *gin.Context) {
	if err := s.app.Sprints.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Sprint deleted"})
}

func (s *Server) handleSelectSprint(c *gin.Context) {
	if err := s.app.Sprints.Select(c.Param("id")); err != nil {
		s.failErr(c, err)
		return
	}
	sp, _ := s.app.Sprints.Current()
	ok(c, http.StatusOK, sp)
}

func (s *Server) handleAddSprintTasks(c *gin.Context) {
	req := struct {
		TaskIDs []int64 `json:"task_ids" binding:"required"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.app.Sprints.AddTasks(c.Request.Context(), c.Param("id"), req.TaskIDs...); err != nil {
		s.failErr(c, err)
		return
	}
	sp, _ := s.app.Sprints.Sprint(c.Param("id"))
	ok(c, http.StatusOK, sp)
}

func (s *Server) handleRemoveSprintTask(c *gin.Context) {
	id, valid := taskID(c, "taskID")
	if !valid {
		return
	}
	if err := s.app.Sprints.RemoveTask(c.Request.Context(), id, c.Param("id")); err != nil {
		s.failErr(c, err)
		return
	}
	sp, _ := s.app.Sprints.Sprint(c.Param("id"))
	ok(c, http.StatusOK, sp)
}

// Goals

// goalContext maps "current" to the selected sprint's context.
func (s *Server) goalContext(c *gin.Context) (string, bool) {
	gc := c.Param("context")
	if gc != "current" {
		return gc, true
	}
	sp, found := s.app.Sprints.Current()
	if !found {
		fail(c, http.StatusNotFound, errors.New("no current sprint"))
		return "", false
	}
	return goal.SprintContext(sp.ID), true
}

func (s *Server) goalView(c *gin.Context, gc string, st goal.Status) {
	ctx := c.Request.Context()
	_, progress, err := s.app.GoalScope(gc)
	if err != nil {
		s.failErr(c, err)
		return
	}
	suggestion, err := s.app.SuggestGoal(ctx, gc)
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"context":        st.Context,
		"target":         st.Target,
		"progress":       progress,
		"achieved":       st.Achieved,
		"local":          st.Local,
		"suggestion":     suggestion,
		"single_context": s.app.Goals.SingleContext(),
	})
}

func (s *Server) handleGetGoal(c *gin.Context) {
	gc, valid := s.goalContext(c)
	if !valid {
		return
	}
	st, err := s.app.Goals.Load(c.Request.Context(), gc)
	if err != nil {
		s.failErr(c, err)
		return
	}
	s.goalView(c, gc, st)
}

func (s *Server) handleSetGoal(c *gin.Context) {
	gc, valid := s.goalContext(c)
	if !valid {
		return
	}
	req := struct {
		Value   int  `json:"value"`
		Confirm bool `json:"confirm"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if req.Value <= 0 {
		fail(c, http.StatusBadRequest, goal.ErrInvalidTarget)
		return
	}
	suggestion, err := s.app.SuggestGoal(c.Request.Context(), gc)
	if err != nil {
		s.failErr(c, err)
		return
	}
	if goal.NeedsConfirmation(req.Value, suggestion) && !req.Confirm {
		c.JSON(http.StatusConflict, gin.H{
			"success":    false,
			"error":      "target is more than 20% above the suggestion; resend with confirm=true",
			"suggestion": suggestion,
		})
		return
	}
	st, err := s.app.SetGoal(c.Request.Context(), gc, req.Value)
	if err != nil {
		s.failErr(c, err)
		return
	}
	s.goalView(c, gc, st)
}

func (s *Server) handleGoalSummary(c *gin.Context) {
	sum, err := s.app.Goals.Summary(c.Request.Context(), s.app.Now())
	if err != nil {
		s.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"total":            sum.Total,
		"achieved":         sum.Achieved,
		"general_achieved": sum.GeneralAchieved,
		"sprint_achieved":  sum.SprintAchieved,
		"current_streak":   sum.CurrentStreak,
		"longest_streak":   sum.LongestStreak,
	})
}

// Stats and reports

func (s *Server) handleStats(c *gin.Context) {
	all := s.app.Tasks.Snapshot()
	if sp, found := s.app.Sprints.Sprint(c.Query("sprint")); found {
		all = sprint.Tasks(sp, all)
	}
	loc := s.app.Location()

	sizeTime := gin.H{}
	for _, st := range stats.SizeTimeBreakdown(all) {
		sizeTime[string(st.Size)] = gin.H{"seconds": st.Seconds, "hours": st.Hours, "percent": st.Percent}
	}
	completion := gin.H{}
	times := stats.CompletionTimes(all)
	for _, ct := range times {
		completion[string(ct.Size)] = gin.H{"samples": ct.Samples, "avg": ct.Avg, "min": ct.Min, "max": ct.Max}
	}
	monthly := gin.H{}
	for _, mp := range stats.MonthlyPoints(all) {
		monthly[mp.Month] = mp.Points
	}
	hours := stats.HourlyProductivity(all, loc)
	hourly := make([]gin.H, 0, len(hours))
	for _, h := range hours {
		hourly = append(hourly, gin.H{"hour": h.Hour, "total_seconds": h.TotalSeconds, "completed_seconds": h.CompletedSeconds, "ratio": h.Ratio()})
	}

	data := gin.H{
		"size_time":            sizeTime,
		"completion_times":     completion,
		"workload_days":        stats.WorkloadSuggestion(all),
		"monthly_points":       monthly,
		"hourly":               hourly,
		"work_habits":          stats.WorkHabits(all, loc),
		"points_per_hour":      stats.PointsPerHour(all),
		"most_productive_hour": nil,
		"most_efficient_size":  nil,
	}
	if h, found := stats.MostProductiveHour(hours); found {
		data["most_productive_hour"] = h
	}
	if size, found := stats.MostEfficientSize(times); found {
		data["most_efficient_size"] = size
	}
	ok(c, http.StatusOK, data)
}

func (s *Server) handleGetReport(c *gin.Context) {
	day, err := timeutil.ParseDate(c.Param("date"), s.app.Location())
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	r, src, err := s.app.Reports.Get(c.Request.Context(), day)
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": r, "source": src})
}

func (s *Server) handleListReports(c *gin.Context) {
	now := s.app.Now()
	from, err := s.parseDate(c.DefaultQuery("from", now.AddDate(0, 0, -6).Format(timeutil.DayLayout)))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	to, err := s.parseDate(c.DefaultQuery("to", now.Format(timeutil.DayLayout)))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	reports, err := s.app.Reports.Range(c.Request.Context(), *from, *to)
	if err != nil {
		s.failErr(c, err)
		return
	}
	if reports == nil {
		reports = []store.Report{}
	}
	ok(c, http.StatusOK, reports)
}

// Notifications

func (s *Server) handleNotifications(c *gin.Context) {
	reminders, unread, err := s.app.Reminders(c.Request.Context())
	if err != nil {
		s.failErr(c, err)
		return
	}
	items := make([]gin.H, 0, len(reminders))
	for _, r := range reminders {
		items = append(items, gin.H{
			"task_id":   r.Task.ID,
			"title":     r.Task.Title,
			"due":       r.Due.Format(timeutil.DayLayout),
			"days_left": r.DaysLeft,
			"label":     r.Label(),
			"relative":  r.Relative,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items, "unread": unread})
}

func (s *Server) handleMarkSeen(c *gin.Context) {
	reminders, _, err := s.app.Reminders(c.Request.Context())
	if err != nil {
		s.failErr(c, err)
		return
	}
	if err := s.app.Notices.MarkSeen(c.Request.Context(), reminders); err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notifications marked as seen"})
}
