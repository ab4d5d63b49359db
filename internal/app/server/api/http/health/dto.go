package health

// Input - у проверки нет параметров
type Input struct{}

// Output ответ проверки
type Output struct {
	Body Response
}

// Response: Database заполняется, только когда подключена база
type Response struct {
	Status   string `json:"status" example:"OK" doc:"Health status of the service"`
	Database string `json:"database,omitempty" example:"OK" doc:"Database connectivity"`
}
