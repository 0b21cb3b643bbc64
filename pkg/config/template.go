package config

// Template is the commented configuration written by `config init`.
const Template = `# actions-smith configuration file

version: "1.0"

# Chat model backend: openai, gemini or bedrock.
# Overridden by --provider and ACTIONS_SMITH_PROVIDER.
provider: openai

# Models per provider. --quick selects the quick model, --model overrides both.
models:
  openai:
    standard: gpt-4-turbo-preview
    quick: gpt-3.5-turbo-0125
  gemini:
    standard: gemini-2.5-pro
    quick: gemini-2.5-flash
  bedrock:
    standard: anthropic.claude-3-5-sonnet-20240620-v1:0
    quick: anthropic.claude-3-haiku-20240307-v1:0

openai:
  # Environment variable holding the API key
  api_key_env: OPENAI_API_KEY
  # base_url: https://api.openai.com/v1
  # organization: org-...

gemini:
  api_key_env: GEMINI_API_KEY

bedrock:
  # Region and profile default to the AWS SDK's usual lookup
  # region: us-east-1
  # profile: default

# Used by --gitlab-project and project includes
gitlab:
  base_url: https://gitlab.com
  token_env: GITLAB_TOKEN

# Price overrides in USD per million tokens, used for --show-usage
pricing:
  # gpt-4-turbo-preview:
  #   input: 10.0
  #   output: 30.0

output:
  format: text  # Options: text, json
  color: auto   # Options: auto, always, never

logging:
  level: warn   # Options: debug, info, warn, error
`
