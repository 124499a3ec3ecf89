package types

type Direction string

const (
	DirectionEntry Direction = "entrada"
	DirectionExit  Direction = "salida"
)

type AccessRequest struct {
	Identity  string    `json:"identity" validate:"required"`
	Direction Direction `json:"direction" validate:"required,oneof=entrada salida"`
}

type AccessResult struct {
	Identity         string   `json:"cedula"`
	Name             string   `json:"nombre"`
	Company          string   `json:"empresa"`
	Status           string   `json:"estadoAcceso"`
	Granted          bool     `json:"granted"`
	Direction        string   `json:"direction"`
	Message          string   `json:"message"`
	SinEntradaPrevia bool     `json:"sinEntradaPrevia"`
	Duration         string   `json:"duracion,omitempty"`
	Similar          []string `json:"similares,omitempty"`
	RowIndex         int      `json:"fila"`
	ServerTime       string   `json:"server_time"`
}
