package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/skillpath-labs/skillpath/internal/course"
)

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var body struct {
		Email   string         `json:"email"`
		Name    string         `json:"name"`
		Profile course.Profile `json:"profile"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	user := &course.User{
		ID:        userID,
		Email:     body.Email,
		Name:      body.Name,
		Profile:   body.Profile,
		CreatedAt: time.Now(),
	}
	if err := s.store.PutUser(r.Context(), user); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCreateCurriculum(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var profile course.Profile
	if !decodeBody(w, r, &profile) {
		return
	}
	if profile.TargetSkill == "" {
		writeError(w, http.StatusBadRequest, "targetSkill is required")
		return
	}

	cur, err := s.curriculum.Create(r.Context(), userID, profile)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cur)
}

func (s *Server) handleCurrentCurriculum(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	cur, err := s.curriculum.Current(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	week, err := strconv.Atoi(r.PathValue("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "week must be a number")
		return
	}

	detail, err := s.curriculum.WeeklyPlan(r.Context(), userID, week)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCompleteWeek(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	week, err := strconv.Atoi(r.PathValue("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "week must be a number")
		return
	}

	if err := s.progress.MarkWeekCompleted(r.Context(), userID, week); err != nil {
		// Incomplete lessons are a client-visible verification failure, not
		// a server fault.
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	lesson, err := s.curriculum.GetOrCreateLesson(r.Context(), userID, r.PathValue("curriculumID"), r.PathValue("subtopicID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.userID(w, r); !ok {
		return
	}

	quiz, err := s.progress.QuizForLesson(r.Context(), r.PathValue("lessonID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var body struct {
		Answers []int `json:"answers"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := s.progress.SubmitQuiz(r.Context(), userID, r.PathValue("quizID"), body.Answers)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompleteResource(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if err := s.progress.RecordResourceCompleted(r.Context(), userID, r.PathValue("resourceID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
}

func (s *Server) handleCompleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if err := s.progress.RecordProjectCompleted(r.Context(), userID, r.PathValue("projectID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
}

func (s *Server) handleUpdateMastery(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var body struct {
		Score int `json:"score"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Score < 0 || body.Score > 100 {
		writeError(w, http.StatusBadRequest, "score must be between 0 and 100")
		return
	}

	if err := s.curriculum.UpdateMastery(r.Context(), userID, r.PathValue("topicID"), body.Score); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	dash, err := s.curriculum.Dashboard(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	p, err := s.progress.Portfolio(r.Context(), userID, r.PathValue("curriculumID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCertEligibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	elig, err := s.certs.Eligibility(r.Context(), userID, r.PathValue("curriculumID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elig)
}

func (s *Server) handleCertPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var body struct {
		Wallet string `json:"wallet"`
		TxHash string `json:"txHash"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Wallet == "" || body.TxHash == "" {
		writeError(w, http.StatusBadRequest, "wallet and txHash are required")
		return
	}

	recorded, err := s.certs.RecordPayment(r.Context(), userID, r.PathValue("curriculumID"), body.Wallet, body.TxHash)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !recorded {
		writeError(w, http.StatusForbidden, "not eligible for certificate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paid": true})
}

func (s *Server) handleCertMetadata(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	meta, err := s.certs.Metadata(r.Context(), userID, r.PathValue("curriculumID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if meta == nil {
		writeError(w, http.StatusForbidden, "certificate not eligible or not paid")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleCertMint(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var body struct {
		Wallet  string `json:"wallet"`
		TokenID string `json:"tokenId"`
		TxHash  string `json:"txHash"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Wallet == "" || body.TokenID == "" || body.TxHash == "" {
		writeError(w, http.StatusBadRequest, "wallet, tokenId and txHash are required")
		return
	}

	recorded, err := s.certs.RecordMint(r.Context(), userID, r.PathValue("curriculumID"), body.Wallet, body.TokenID, body.TxHash)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !recorded {
		writeError(w, http.StatusForbidden, "certificate not eligible or not paid")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"minted": true})
}

func (s *Server) handlePaymentConfirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TxHash       string `json:"txHash"`
		CurriculumID string `json:"curriculumId"`
		UserAddress  string `json:"userAddress"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.TxHash == "" || body.CurriculumID == "" {
		writeError(w, http.StatusBadRequest, "txHash and curriculumId are required")
		return
	}

	res, err := s.verifier.Confirm(r.Context(), body.TxHash, body.CurriculumID, body.UserAddress)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePaymentEligibility(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	curriculumID := r.URL.Query().Get("curriculumId")
	if address == "" || curriculumID == "" {
		writeError(w, http.StatusBadRequest, "address and curriculumId are required")
		return
	}

	res, err := s.verifier.CheckEligibility(r.Context(), address, curriculumID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePaymentPrice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.verifier.Price())
}

func (s *Server) handleProgressReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	data, err := s.reports.ProgressReport(r.Context(), userID, r.PathValue("curriculumID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progress-report.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
