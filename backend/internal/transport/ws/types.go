package ws

// Константы для WebSocket сообщений
const (
	// От клиента
	MessageTypePing = "ping" // Пинг для измерения задержки
	MessageTypeFire = "fire" // Выстрел лучом по направлению взгляда
	MessageTypeMove = "move" // Перемещение глаза зрителя

	// От сервера
	MessageTypePong        = "pong"        // Ответ на пинг
	MessageTypeInfo        = "info"        // Информационное сообщение
	MessageTypeError       = "error"       // Ошибка обработки команды
	MessageTypeMiss        = "miss"        // Луч никуда не попал
	MessageTypeBeamCreate  = "beam_create" // Новый луч со всеми маркерами
	MessageTypeBeamScale   = "beam_scale"  // Новый масштаб слоев луча
	MessageTypeBeamRemove  = "beam_remove" // Луч удален
	MessageTypeViewerReady = "viewer"      // Идентификатор и позиция зрителя
)

// Vec3 вектор в JSON
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CellJSON целочисленная ячейка мира
type CellJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// MarkerJSON маркер луча
type MarkerJSON struct {
	Kind     string  `json:"kind"`
	Material string  `json:"material"`
	Position Vec3    `json:"position"`
	Offset   Vec3    `json:"offset"`
	Scale    float64 `json:"scale"`
}

// PingMessage представляет пинг от клиента
type PingMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
}

// PongMessage представляет ответ на пинг от сервера
type PongMessage struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"client_time"`
	ServerTime int64  `json:"server_time"`
}

// FireMessage команда выстрела. Eye необязателен, по умолчанию последняя известная позиция.
type FireMessage struct {
	Type string `json:"type"`
	Eye  *Vec3  `json:"eye,omitempty"`
	Dir  Vec3   `json:"dir"`
}

// MoveMessage перемещение зрителя
type MoveMessage struct {
	Type string `json:"type"`
	Eye  Vec3   `json:"eye"`
}

// InfoMessage представляет информационное сообщение от сервера
type InfoMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorMessage ответ на некорректную команду
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ViewerMessage сообщает клиенту его идентификатор
type ViewerMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Eye  Vec3   `json:"eye"`
}

// MissMessage луч не нашел цели
type MissMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"server_time"`
}

// BeamCreateMessage полное описание луча
type BeamCreateMessage struct {
	Type        string       `json:"type"`
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id"`
	Origin      Vec3         `json:"origin"`
	Target      Vec3         `json:"target"`
	Anchor      CellJSON     `json:"anchor"`
	Phase       float64      `json:"phase"`
	SheathScale float64      `json:"sheath_scale"`
	CoreScale   float64      `json:"core_scale"`
	Markers     []MarkerJSON `json:"markers"`
	ServerTime  int64        `json:"server_time"`
}

// BeamScaleMessage масштаб слоев после тика
type BeamScaleMessage struct {
	Type        string  `json:"type"`
	ID          string  `json:"id"`
	Phase       float64 `json:"phase"`
	SheathScale float64 `json:"sheath_scale"`
	CoreScale   float64 `json:"core_scale"`
	ServerTime  int64   `json:"server_time"`
}

// BeamRemoveMessage удаление луча
type BeamRemoveMessage struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	ServerTime int64  `json:"server_time"`
}
