package domain

import "time"

const DefaultHistoryLimit = 50

// QueryRecord - запись истории запросов (сам ответ не храним, только длину)
type QueryRecord struct {
	ID             int64
	Timestamp      time.Time
	Question       string
	AnalysisType   AnalysisType
	Symbols        []string
	Timeframe      Timeframe
	ResponseLength int
}
