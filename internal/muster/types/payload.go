package types

// OccupancyPayload is the JSON shape consumed by the UI layer.
type OccupancyPayload struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	TotalDentro    int             `json:"totalDentro"`
	PersonasDentro []PersonaDentro `json:"personasDentro"`
	Timestamp      string          `json:"timestamp"`
}

type PersonaDentro struct {
	Cedula      string `json:"cedula"`
	Nombre      string `json:"nombre"`
	Empresa     string `json:"empresa"`
	HoraEntrada string `json:"horaEntrada"`
}
