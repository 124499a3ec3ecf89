package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxRequestBody caps JSON and protobuf request bodies. An evacuation of a
// few hundred ids fits comfortably.
const maxRequestBody = 64 << 10

const protobufType = "application/x-protobuf"

func isProtobuf(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	switch strings.TrimSpace(ct) {
	case protobufType, "application/protobuf":
		return true
	}
	return false
}

// wantsProtobuf reports whether the client asked for a protobuf response.
func wantsProtobuf(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if isProtobuf(part) {
			return true
		}
	}
	return false
}

// decodeBody fills v from a JSON body, or from a protobuf Struct whose
// fields mirror the JSON ones.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return err
	}
	if isProtobuf(r.Header.Get("Content-Type")) {
		var st structpb.Struct
		if err := proto.Unmarshal(body, &st); err != nil {
			return fmt.Errorf("protobuf body: %w", err)
		}
		if body, err = json.Marshal(st.AsMap()); err != nil {
			return err
		}
	}
	return json.Unmarshal(body, v)
}

// toStruct converts any JSON-encodable value to a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
