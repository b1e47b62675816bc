package estimation

import (
	"github.com/Harshitk-cp/prest/internal/codec"
	"github.com/Harshitk-cp/prest/internal/theory"
)

// Encode writes the request as (packed subjects, theories, forced choice, disable parallelism).
func (r *Request) Encode(e *codec.Encoder) {
	e.Len(len(r.Subjects))
	for i := range r.Subjects {
		e.PackedSubject(&r.Subjects[i])
	}
	e.Len(len(r.Theories))
	for _, t := range r.Theories {
		theory.Encode(e, t)
	}
	e.Bool(r.ForcedChoice)
	e.Bool(r.DisableParallelism)
}

func DecodeRequest(d *codec.Decoder) *Request {
	r := &Request{}

	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		s := d.PackedSubject()
		if s != nil {
			r.Subjects = append(r.Subjects, *s)
		}
	}

	n = d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		t := theory.Decode(d)
		if t != nil {
			r.Theories = append(r.Theories, t)
		}
	}

	r.ForcedChoice = d.Bool()
	r.DisableParallelism = d.Bool()
	return r
}

// Encode writes the response as (subject name, minimal score, scored instances).
func (r *Response) Encode(e *codec.Encoder) {
	e.Text(r.SubjectName)
	e.Float64(r.MinimalScore)
	e.Len(len(r.BestInstances))
	for _, si := range r.BestInstances {
		theory.Encode(e, si.Theory)
		e.Float64(si.Score)
		e.Bytes(si.Instance)
	}
}

func DecodeResponse(d *codec.Decoder) *Response {
	r := &Response{
		SubjectName:  d.Text(),
		MinimalScore: d.Float64(),
	}
	n := d.Len()
	for i := 0; i < n && d.Err() == nil; i++ {
		si := ScoredInstance{Theory: theory.Decode(d)}
		si.Score = d.Float64()
		si.Instance = d.Bytes()
		if d.Err() == nil {
			r.BestInstances = append(r.BestInstances, si)
		}
	}
	return r
}

// MarshalRequest encodes req into a standalone blob.
func MarshalRequest(req *Request) ([]byte, error) {
	return codec.Marshal(req.Encode)
}

func UnmarshalRequest(p []byte) (*Request, error) {
	var req *Request
	if err := codec.Unmarshal(p, func(d *codec.Decoder) { req = DecodeRequest(d) }); err != nil {
		return nil, err
	}
	return req, nil
}

// MarshalResponses encodes a batch result as a list of packed responses.
func MarshalResponses(resps []Response) ([]byte, error) {
	return codec.Marshal(func(e *codec.Encoder) {
		EncodeResponses(e, resps)
	})
}

func EncodeResponses(e *codec.Encoder, resps []Response) {
	e.Len(len(resps))
	for i := range resps {
		p, err := codec.Marshal(resps[i].Encode)
		if err != nil {
			e.Fail(err)
			return
		}
		e.Bytes(p)
	}
}

func DecodeResponses(d *codec.Decoder) []Response {
	n := d.Len()
	out := make([]Response, 0, codec.Prealloc(n))
	for i := 0; i < n && d.Err() == nil; i++ {
		p := d.Bytes()
		if d.Err() != nil {
			break
		}
		var resp *Response
		if err := codec.Unmarshal(p, func(inner *codec.Decoder) { resp = DecodeResponse(inner) }); err != nil {
			d.Fail(err)
			break
		}
		out = append(out, *resp)
	}
	return out
}

func UnmarshalResponses(p []byte) ([]Response, error) {
	var out []Response
	if err := codec.Unmarshal(p, func(d *codec.Decoder) { out = DecodeResponses(d) }); err != nil {
		return nil, err
	}
	return out, nil
}
