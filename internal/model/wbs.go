package model

import "encoding/json"

// Status inicial de toda task gerada; transições de ciclo de vida
// acontecem fora deste serviço.
const TaskStatusPending = "pending"

// Níveis de complexidade reconhecidos pelo RuleSet padrão
const (
	ComplexityLow    = "Low"
	ComplexityMedium = "Medium"
	ComplexityHigh   = "High"
)

// ProjectInfo contém os dados declarados do projeto
type ProjectInfo struct {
	ProjectName         string  `json:"project_name"`
	Description         string  `json:"description,omitempty"`
	ComplexityLevel     string  `json:"complexity_level,omitempty"`
	TotalEstimatedHours float64 `json:"total_estimated_hours"`
	EstimatedDuration   string  `json:"estimated_duration,omitempty"`
}

// WBSTree é a árvore completa de decomposição do trabalho.
// A ordem das fases é semanticamente relevante: a posição é a chave de
// correlação entre árvores vindas de tentativas de geração independentes.
type WBSTree struct {
	ProjectInfo ProjectInfo `json:"project_info"`
	Phases      []Phase     `json:"phases"`
}

// Phase é uma fase do projeto (ex: "1")
type Phase struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Duration       string        `json:"duration,omitempty"`
	DurationDays   int           `json:"duration_days,omitempty"`
	EstimatedHours float64       `json:"estimated_hours"`
	WorkPackages   []WorkPackage `json:"work_packages"`
}

// WorkPackage é um pacote de trabalho dentro de uma fase (ex: "1.1")
type WorkPackage struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	EstimatedHours   float64  `json:"estimated_hours"`
	DurationDays     int      `json:"duration_days,omitempty"`
	Dependencies     []string `json:"dependencies,omitempty"`
	CanStartParallel bool     `json:"can_start_parallel,omitempty"`
	SkillsRequired   []string `json:"skills_required,omitempty"`
	Deliverables     []string `json:"deliverables,omitempty"`
	Tasks            []Task   `json:"tasks"`
}

// Task é a menor unidade de trabalho (ex: "1.1.1")
type Task struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	EstimatedHours   float64  `json:"estimated_hours"`
	DurationDays     int      `json:"duration_days,omitempty"`
	Status           string   `json:"status,omitempty"`
	Dependencies     []string `json:"dependencies,omitempty"`
	CanStartParallel bool     `json:"can_start_parallel,omitempty"`
	SkillsRequired   []string `json:"skills_required,omitempty"`
}

// wbsEnvelope é o formato aninhado {"project_info":..., "wbs":{"phases":[...]}}
// que o gerador devolve; o formato plano {"phases":[...]} também é aceito.
type wbsEnvelope struct {
	ProjectInfo ProjectInfo `json:"project_info"`
	Phases      []Phase     `json:"phases"`
	WBS         *struct {
		Phases []Phase `json:"phases"`
	} `json:"wbs"`
}

// UnmarshalJSON aceita tanto o envelope aninhado do gerador quanto o
// formato plano usado pela API.
func (t *WBSTree) UnmarshalJSON(data []byte) error {
	var env wbsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	t.ProjectInfo = env.ProjectInfo
	t.Phases = env.Phases
	if t.Phases == nil && env.WBS != nil {
		t.Phases = env.WBS.Phases
	}
	return nil
}

// ApplyDefaults preenche valores iniciais ausentes (status de tasks).
// Chamado uma única vez na fronteira de ingestão.
func (t *WBSTree) ApplyDefaults() {
	for pi := range t.Phases {
		for wi := range t.Phases[pi].WorkPackages {
			for ti := range t.Phases[pi].WorkPackages[wi].Tasks {
				task := &t.Phases[pi].WorkPackages[wi].Tasks[ti]
				if task.Status == "" {
					task.Status = TaskStatusPending
				}
			}
		}
	}
}

// Clone retorna uma cópia profunda da árvore. Todos os algoritmos do
// núcleo operam sobre cópias e nunca mutam dados do chamador.
func (t *WBSTree) Clone() *WBSTree {
	if t == nil {
		return nil
	}

	out := &WBSTree{
		ProjectInfo: t.ProjectInfo,
		Phases:      make([]Phase, len(t.Phases)),
	}

	for i, phase := range t.Phases {
		p := phase
		p.WorkPackages = make([]WorkPackage, len(phase.WorkPackages))
		for j, wp := range phase.WorkPackages {
			w := wp
			w.Dependencies = cloneStrings(wp.Dependencies)
			w.SkillsRequired = cloneStrings(wp.SkillsRequired)
			w.Deliverables = cloneStrings(wp.Deliverables)
			w.Tasks = make([]Task, len(wp.Tasks))
			for k, task := range wp.Tasks {
				tk := task
				tk.Dependencies = cloneStrings(task.Dependencies)
				tk.SkillsRequired = cloneStrings(task.SkillsRequired)
				w.Tasks[k] = tk
			}
			p.WorkPackages[j] = w
		}
		out.Phases[i] = p
	}

	return out
}

// PhaseHoursSum soma as horas declaradas de todas as fases
func (t *WBSTree) PhaseHoursSum() float64 {
	var total float64
	for _, p := range t.Phases {
		total += p.EstimatedHours
	}
	return total
}

// TaskCount conta as tasks em toda a árvore
func (t *WBSTree) TaskCount() int {
	count := 0
	for _, p := range t.Phases {
		for _, wp := range p.WorkPackages {
			count += len(wp.Tasks)
		}
	}
	return count
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
