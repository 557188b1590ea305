package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"rarays/backend/internal/beam"
	"rarays/backend/internal/game"
)

var (
	// ErrUnknownMessage неизвестный тип сообщения
	ErrUnknownMessage = errors.New("unknown message type")
	// ErrInvalidMessage сообщение не прошло проверку
	ErrInvalidMessage = errors.New("invalid message")
)

// ParseMessage разбирает входящее сообщение в соответствующий тип
func ParseMessage(data []byte) (interface{}, error) {
	msgType, err := GetMessageType(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	switch msgType {
	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing ping message: %w", err)
		}
		return &msg, nil

	case MessageTypeFire:
		var msg FireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing fire message: %w", err)
		}
		if msg.Dir.toVec().Len() == 0 {
			return nil, fmt.Errorf("%w: fire direction is zero", ErrInvalidMessage)
		}
		return &msg, nil

	case MessageTypeMove:
		var msg MoveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing move message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msgType)
	}
}

// GetMessageType возвращает тип сообщения на основе входных данных
func GetMessageType(data []byte) (string, error) {
	var baseMessage struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(data, &baseMessage); err != nil {
		return "", err
	}

	return baseMessage.Type, nil
}

// GetCurrentServerTime возвращает текущее серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

func toVec3(v mgl64.Vec3) Vec3 {
	return Vec3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

func (v Vec3) toVec() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// NewPongMessage создает ответ на пинг
func NewPongMessage(clientTime int64) *PongMessage {
	return &PongMessage{
		Type:       MessageTypePong,
		ClientTime: clientTime,
		ServerTime: GetCurrentServerTime(),
	}
}

// NewInfoMessage создает новое информационное сообщение
func NewInfoMessage(message string) *InfoMessage {
	return &InfoMessage{Type: MessageTypeInfo, Message: message}
}

// NewErrorMessage создает сообщение об ошибке
func NewErrorMessage(err error) *ErrorMessage {
	return &ErrorMessage{Type: MessageTypeError, Message: err.Error()}
}

// NewViewerMessage создает приветствие зрителя
func NewViewerMessage(id string, eye mgl64.Vec3) *ViewerMessage {
	return &ViewerMessage{Type: MessageTypeViewerReady, ID: id, Eye: toVec3(eye)}
}

// NewMissMessage создает сообщение о промахе
func NewMissMessage() *MissMessage {
	return &MissMessage{Type: MessageTypeMiss, ServerTime: GetCurrentServerTime()}
}

// NewBeamCreateMessage сериализует снимок луча
func NewBeamCreateMessage(snapshot game.BeamSnapshot) *BeamCreateMessage {
	markers := make([]MarkerJSON, len(snapshot.Markers))
	for i, m := range snapshot.Markers {
		markers[i] = newMarkerJSON(m)
	}

	return &BeamCreateMessage{
		Type:        MessageTypeBeamCreate,
		ID:          snapshot.ID,
		OwnerID:     snapshot.OwnerID,
		Origin:      toVec3(snapshot.Origin),
		Target:      toVec3(snapshot.Target),
		Anchor:      CellJSON{X: snapshot.Anchor.X, Y: snapshot.Anchor.Y, Z: snapshot.Anchor.Z},
		Phase:       snapshot.Phase,
		SheathScale: snapshot.SheathScale,
		CoreScale:   snapshot.CoreScale,
		Markers:     markers,
		ServerTime:  GetCurrentServerTime(),
	}
}

func newMarkerJSON(m beam.Marker) MarkerJSON {
	return MarkerJSON{
		Kind:     m.Kind.String(),
		Material: m.Kind.Material(),
		Position: toVec3(m.Position()),
		Offset:   toVec3(m.RenderOffset),
		Scale:    m.Scale.X(),
	}
}

// NewBeamScaleMessage создает сообщение о новом масштабе
func NewBeamScaleMessage(update game.BeamScaleUpdate) *BeamScaleMessage {
	return &BeamScaleMessage{
		Type:        MessageTypeBeamScale,
		ID:          update.ID,
		Phase:       update.Phase,
		SheathScale: update.SheathScale,
		CoreScale:   update.CoreScale,
		ServerTime:  GetCurrentServerTime(),
	}
}

// NewBeamRemoveMessage создает сообщение об удалении луча
func NewBeamRemoveMessage(id string) *BeamRemoveMessage {
	return &BeamRemoveMessage{Type: MessageTypeBeamRemove, ID: id, ServerTime: GetCurrentServerTime()}
}
