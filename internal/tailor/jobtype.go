package tailor

import "strings"

// JobType selects the role-specific preamble used when rewriting a CV.
type JobType string

const (
	JobGeneral          JobType = "general"
	JobDataScientist    JobType = "data_scientist"
	JobMLEngineer       JobType = "ml_engineer"
	JobGenAIEngineer    JobType = "genai_engineer"
	JobSoftwareEngineer JobType = "software_engineer"
	JobDevOpsEngineer   JobType = "devops_engineer"
)

var jobTypes = []JobType{
	JobGeneral,
	JobDataScientist,
	JobMLEngineer,
	JobGenAIEngineer,
	JobSoftwareEngineer,
	JobDevOpsEngineer,
}

var rolePreambles = map[JobType]string{
	JobGeneral: "You are an expert CV writer. Your task is to create a highly optimized CV that maximizes keyword matching.",
	JobDataScientist: `You are a senior data science recruiter and CV optimization expert specializing in data science roles.
Focus on: statistical modeling, machine learning algorithms, data visualization, Python/R proficiency,
big data tools (Spark, Hadoop), cloud platforms (AWS, GCP, Azure), SQL/NoSQL databases.
Prioritize: predictive modeling experience, A/B testing, feature engineering, data pipeline development.`,
	JobMLEngineer: `You are an ML engineering specialist focusing on production machine learning systems.
Focus on: model deployment, MLOps, containerization (Docker, Kubernetes), CI/CD pipelines,
model monitoring, scalable inference, API development, performance optimization.
Prioritize: production ML systems, automated pipelines, model versioning, A/B testing frameworks.`,
	JobGenAIEngineer: `You are a Generative AI expert specializing in large language models and AI systems.
Focus on: LLM fine-tuning, prompt engineering, RAG systems, multimodal models,
transformer architectures, ethical AI considerations, model deployment at scale.
Prioritize: custom model training, inference optimization, safety alignment, prompt optimization.`,
	JobSoftwareEngineer: `You are a software engineering expert focusing on full-stack development and system design.
Focus on: programming languages (Python, Java, JavaScript), frameworks, databases,
cloud services, microservices, API design, testing methodologies.
Prioritize: system architecture, scalable solutions, code quality, DevOps practices.`,
	JobDevOpsEngineer: `You are a DevOps engineering specialist focusing on infrastructure and deployment.
Focus on: cloud platforms (AWS, GCP, Azure), containerization (Docker, Kubernetes),
CI/CD pipelines, infrastructure as code (Terraform), monitoring tools, security practices.
Prioritize: automation, scalability, reliability, cost optimization, security compliance.`,
}

// JobTypes returns the supported job types, general first.
func JobTypes() []JobType {
	out := make([]JobType, len(jobTypes))
	copy(out, jobTypes)
	return out
}

// ParseJobType normalizes s and falls back to JobGeneral for unknown values.
func ParseJobType(s string) JobType {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	for _, jobType := range jobTypes {
		if string(jobType) == normalized {
			return jobType
		}
	}
	return JobGeneral
}

// Label is the human readable role name, e.g. "data scientist".
func (j JobType) Label() string {
	return strings.ReplaceAll(string(j), "_", " ")
}

func (j JobType) preamble() string {
	if preamble, ok := rolePreambles[j]; ok {
		return preamble
	}
	return rolePreambles[JobGeneral]
}
