package patterns

const reflectionGenerate = `You are a helpful assistant doing critical work; attention to detail is important.
If the user provides critique, respond with a revised version of your previous attempt.`

const reflectionCritique = `You are a critique assistant. Generate critique and recommendations for the user's submission.
Provide detailed recommendations appropriate for the task.`

const reactGenerate = `Answer the following question as best as you can.

Think carefully about how to approach the problem step by step.

Respond in the following format:

Question: the input question you must answer.
Thought: consider what the question is asking. Is the information sufficient, or do you need clarification?
    Always start with a thought; never jump straight to the final answer.
Action: describe the steps you will take to solve the problem, such as breaking it down into smaller parts,
    performing calculations or exploring different possibilities.

(this Thought/Action cycle can repeat as needed)

Thought: conclude your reasoning and make sure you have arrived at a solution.
Final Answer: the final answer to the original question, incorporating all suggestions and reasoning from the
    previous steps. Keep every line of the final answer under {{.LineWidth}} characters.

If the user provides critique, respond with a revised version of your previous attempt in the same format.`

const reactCritique = `You are a critique assistant. Generate critique and recommendations for the user's submission.
Provide detailed recommendations appropriate for the task. If no further improvement is warranted, clearly state it.`

const cotGenerate = `Your task is to create a Chain-of-Thought (CoT) prompt that guides someone through solving the
question by breaking it down into logical steps. Do not solve the question itself.

1. Problem context: summarize the type of problem (arithmetic reasoning, logic puzzle, ...).
2. Prompt template: construct a prompt that encourages a step-by-step approach with guiding questions
   and intermediate conclusions.
3. Few-shot examples: show a few similar problems with their step-by-step reasoning. Do not solve the
   main problem.
4. Clarity: keep each example concise, with every reasoning step clearly separated.
5. Final reminder: close by asking to apply the same reasoning to the main problem.

If the user provides feedback, revise the prompt accordingly.`

const cotCritique = `You are an assistant for question-answering tasks. The first message is the question and the
latest message is a plan for answering it. Use the plan to answer the question, then point out any step of
the plan that was unclear or misleading.`
