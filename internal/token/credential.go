package token

// Kind tags the two credential forms a bearer string can take.
type Kind int

const (
	KindOpaque Kind = iota
	KindSigned
)

func (k Kind) String() string {
	if k == KindSigned {
		return "signed"
	}
	return "opaque"
}

// Credential is either Signed (verified claims) or Opaque (a datastore lookup
// key). Expired records a signed token whose signature was valid but whose
// exp has passed; it is still classified Opaque so callers fall back to the
// datastore.
type Credential struct {
	Kind    Kind
	Raw     string
	Claims  Claims
	Expired bool
}

func (c Credential) IsSigned() bool {
	return c.Kind == KindSigned
}

// Classify tries the signed form first and falls back to opaque.
func (s Signer) Classify(raw string) Credential {
	claims, err := s.Verify(raw)
	switch err {
	case nil:
		return Credential{Kind: KindSigned, Raw: raw, Claims: claims}
	case ErrTokenExpired:
		return Credential{Kind: KindOpaque, Raw: raw, Expired: true}
	default:
		return Credential{Kind: KindOpaque, Raw: raw}
	}
}
