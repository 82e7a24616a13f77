package monomer

import "github.com/turtacn/helmkit/internal/domain/notation"

type seed struct {
	id, analog, name string
	role             Role
	attachments      []string
	smiles           string
}

var (
	r12  = []string{"R1", "R2"}
	r123 = []string{"R1", "R2", "R3"}
)

var peptideSeeds = []seed{
	{"A", "A", "Alanine", RoleBackbone, r12, "C[C@H](N[*:1])C([*:2])=O"},
	{"R", "R", "Arginine", RoleBackbone, r12, "NC(=N)NCCC[C@H](N[*:1])C([*:2])=O"},
	{"N", "N", "Asparagine", RoleBackbone, r12, "NC(=O)C[C@H](N[*:1])C([*:2])=O"},
	{"D", "D", "Aspartic acid", RoleBackbone, r123, "O=C([*:3])C[C@H](N[*:1])C([*:2])=O"},
	{"C", "C", "Cysteine", RoleBackbone, r123, "[*:3]SC[C@H](N[*:1])C([*:2])=O"},
	{"Q", "Q", "Glutamine", RoleBackbone, r12, "NC(=O)CC[C@H](N[*:1])C([*:2])=O"},
	{"E", "E", "Glutamic acid", RoleBackbone, r123, "O=C([*:3])CC[C@H](N[*:1])C([*:2])=O"},
	{"G", "G", "Glycine", RoleBackbone, r12, "C(N[*:1])C([*:2])=O"},
	{"H", "H", "Histidine", RoleBackbone, r12, "c1cnc[nH]1C[C@H](N[*:1])C([*:2])=O"},
	{"I", "I", "Isoleucine", RoleBackbone, r12, "CC[C@H](C)[C@H](N[*:1])C([*:2])=O"},
	{"L", "L", "Leucine", RoleBackbone, r12, "CC(C)C[C@H](N[*:1])C([*:2])=O"},
	{"K", "K", "Lysine", RoleBackbone, r123, "[*:3]NCCCC[C@H](N[*:1])C([*:2])=O"},
	{"M", "M", "Methionine", RoleBackbone, r12, "CSCC[C@H](N[*:1])C([*:2])=O"},
	{"F", "F", "Phenylalanine", RoleBackbone, r12, "c1ccccc1C[C@H](N[*:1])C([*:2])=O"},
	{"P", "P", "Proline", RoleBackbone, r12, "C1CN([*:1])[C@@H]1C([*:2])=O"},
	{"S", "S", "Serine", RoleBackbone, r12, "OC[C@H](N[*:1])C([*:2])=O"},
	{"T", "T", "Threonine", RoleBackbone, r12, "C[C@@H](O)[C@H](N[*:1])C([*:2])=O"},
	{"W", "W", "Tryptophan", RoleBackbone, r12, "c1ccc2c(c1)c(c[nH]2)C[C@H](N[*:1])C([*:2])=O"},
	{"Y", "Y", "Tyrosine", RoleBackbone, r12, "Oc1ccc(cc1)C[C@H](N[*:1])C([*:2])=O"},
	{"V", "V", "Valine", RoleBackbone, r12, "CC(C)[C@H](N[*:1])C([*:2])=O"},
	{"dA", "A", "D-Alanine", RoleBackbone, r12, "C[C@@H](N[*:1])C([*:2])=O"},
	{"meG", "G", "N-Methyl-Glycine", RoleBackbone, r12, "CN([*:1])CC([*:2])=O"},
	{"Aib", "A", "alpha-Aminoisobutyric acid", RoleBackbone, r12, "CC(C)(N[*:1])C([*:2])=O"},
	{"ac", "X", "N-Terminal Acetic Acid", RoleBackbone, []string{"R2"}, "CC([*:2])=O"},
	{"am", "X", "C-Terminal amine", RoleBackbone, []string{"R1"}, "N[*:1]"},
}

var rnaSeeds = []seed{
	{"R", "R", "Ribose", RoleBackbone, r123, "[*]OC[C@H]1O[C@@H]([*])[C@H](O)[C@@H]1O[*]"},
	{"dR", "R", "Deoxy-Ribose", RoleBackbone, r123, "[*]OC[C@H]1O[C@@H]([*])C[C@@H]1O[*]"},
	{"mR", "R", "2'-O-Methyl-Ribose", RoleBackbone, r123, ""},
	{"LR", "R", "2,4-Locked-Ribose", RoleBackbone, r123, ""},
	{"P", "P", "Phosphate", RoleBackbone, r12, "OP([*:1])([*:2])=O"},
	{"sP", "P", "Phosporothioate", RoleBackbone, r12, "SP([*:1])([*:2])=O"},
	{"A", "A", "Adenine", RoleBranch, []string{"R1"}, "Nc1ncnc2n([*:1])cnc12"},
	{"C", "C", "Cytosine", RoleBranch, []string{"R1"}, "Nc1ccn([*:1])c(=O)n1"},
	{"G", "G", "Guanine", RoleBranch, []string{"R1"}, "Nc1nc2n([*:1])cnc2c(=O)[nH]1"},
	{"T", "T", "Thymine", RoleBranch, []string{"R1"}, "Cc1cn([*:1])c(=O)[nH]c1=O"},
	{"U", "U", "Uracil", RoleBranch, []string{"R1"}, "O=c1ccn([*:1])c(=O)[nH]1"},
	{"5meC", "C", "5-Methyl-Cytosine", RoleBranch, []string{"R1"}, ""},
}

var chemSeeds = []seed{
	{"PEG2", "", "Diethylene glycol", RoleUndefined, r12, "[*:1]OCCOCCO[*:2]"},
	{"EG", "", "Ethylene glycol", RoleUndefined, r12, "[*:1]OCCO[*:2]"},
	{"SMCC", "", "SMCC linker", RoleUndefined, r12, ""},
	{"MCC", "", "MCC linker", RoleUndefined, r12, ""},
	{"SS3", "", "Dipropanol-disulfide", RoleUndefined, r12, "[*:1]OCCCSSCCCO[*:2]"},
	{"sDBL", "", "Symmetric Doubler", RoleUndefined, r123, ""},
	{"A6OH", "", "6-amino-hexanol", RoleUndefined, []string{"R1"}, "NCCCCCCO[*:1]"},
}

// StandardLibrary returns a fresh copy of the built-in monomer set.
func StandardLibrary() []*Monomer {
	out := make([]*Monomer, 0, len(peptideSeeds)+len(rnaSeeds)+len(chemSeeds))
	add := func(kind notation.Kind, seeds []seed) {
		for _, s := range seeds {
			out = append(out, &Monomer{
				ID:              s.id,
				PolymerType:     kind,
				Role:            s.role,
				NaturalAnalog:   s.analog,
				Attachments:     append([]string(nil), s.attachments...),
				Name:            s.name,
				SMILES:          s.smiles,
				CanonicalSMILES: s.smiles,
			})
		}
	}
	add(notation.KindPeptide, peptideSeeds)
	add(notation.KindRNA, rnaSeeds)
	add(notation.KindChem, chemSeeds)
	return out
}
